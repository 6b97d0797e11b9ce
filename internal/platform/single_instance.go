package platform

import (
	"bufio"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"strings"
	"sync"
	"time"
)

// ErrAlreadyRunning indicates another instance already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

// ErrCommandRejected is returned when the running instance refuses a forwarded command.
var ErrCommandRejected = errors.New("command rejected")

const (
	replyOK          = "ok"
	maxCommandLength = 4096
	connDeadline     = 2 * time.Second
)

// InstanceGuard keeps a second recorder from installing its own input hook.
// The lock socket also accepts one command line per connection from later
// launches, so `mousereel force-stop` reaches the running engine.
type InstanceGuard struct {
	mu       sync.Mutex
	listener net.Listener
	address  string
	logger   Logger
	serving  sync.WaitGroup
}

// AcquireSingleInstance binds the localhost lock port derived from name.
func AcquireSingleInstance(name string, logger Logger) (*InstanceGuard, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	address := lockAddress(name)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, address)
	}
	logger.Info("instance lock acquired", "addr", address)
	return &InstanceGuard{listener: listener, address: address, logger: logger}, nil
}

// Serve starts accepting forwarded commands. accept reports whether the
// command was queued; it runs on the connection goroutine and must not block.
func (guard *InstanceGuard) Serve(accept func(command string) error) {
	guard.mu.Lock()
	listener := guard.listener
	guard.mu.Unlock()
	if listener == nil {
		return
	}

	guard.serving.Add(1)
	go func() {
		defer guard.serving.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			guard.handleConn(conn, accept)
		}
	}()
}

func (guard *InstanceGuard) handleConn(conn net.Conn, accept func(string) error) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connDeadline))

	reader := bufio.NewReaderSize(conn, maxCommandLength)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		guard.logger.Warn("forwarded command unreadable", "err", err)
		return
	}
	command := strings.TrimSpace(line)

	reply := replyOK
	if err := accept(command); err != nil {
		reply = err.Error()
	}
	guard.logger.Info("forwarded command", "command", command, "reply", reply)
	_, _ = fmt.Fprintln(conn, reply)
}

// Release frees the lock and stops serving. Safe on a nil guard.
func (guard *InstanceGuard) Release() error {
	if guard == nil {
		return nil
	}
	guard.mu.Lock()
	listener := guard.listener
	guard.listener = nil
	guard.mu.Unlock()
	if listener == nil {
		return nil
	}
	err := listener.Close()
	guard.serving.Wait()
	return err
}

// Address returns the bound lock address.
func (guard *InstanceGuard) Address() string {
	if guard == nil {
		return ""
	}
	return guard.address
}

// ForwardCommand sends command to the instance holding the lock for name.
func ForwardCommand(name, command string) error {
	command = strings.TrimSpace(command)
	if command == "" || strings.ContainsAny(command, "\r\n") {
		return fmt.Errorf("%w: %q", ErrCommandRejected, command)
	}
	address := lockAddress(name)
	conn, err := net.DialTimeout("tcp", address, connDeadline)
	if err != nil {
		return fmt.Errorf("dial %s: %w", address, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connDeadline))

	if _, err := fmt.Fprintln(conn, command); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && reply == "" {
		return fmt.Errorf("read reply: %w", err)
	}
	if reply = strings.TrimSpace(reply); reply != replyOK {
		return fmt.Errorf("%w: %s", ErrCommandRejected, reply)
	}
	return nil
}

func lockAddress(name string) string {
	return fmt.Sprintf("127.0.0.1:%d", lockPort(name))
}

func lockPort(name string) int {
	const (
		minPort = 41000
		maxPort = 48999
	)
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(name))
	return minPort + int(hash.Sum32()%uint32(maxPort-minPort+1))
}
