package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"mousereel/internal/core/macro"
)

type saveResult struct {
	path string
	ok   bool
	err  error
}

// SaveDialog asks for a macro destination with the fyne file-save dialog.
type SaveDialog struct {
	app fyne.App
}

// NewSaveDialog creates a prompter bound to app.
func NewSaveDialog(app fyne.App) *SaveDialog {
	return &SaveDialog{app: app}
}

// PromptSavePath shows the dialog and blocks until it closes.
// It must not be called from the UI goroutine.
func (saveDialog *SaveDialog) PromptSavePath(dir, suggestedName string) (string, bool, error) {
	results := make(chan saveResult, 1)

	fyne.Do(func() {
		window := saveDialog.app.NewWindow("Save macro")
		window.Resize(fyne.NewSize(720, 520))

		var once sync.Once
		finish := func(result saveResult) {
			once.Do(func() {
				results <- result
				window.Close()
			})
		}

		save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
			if err != nil {
				finish(saveResult{err: fmt.Errorf("save dialog: %w", err)})
				return
			}
			if writer == nil {
				finish(saveResult{})
				return
			}
			path := writer.URI().Path()
			if closeErr := writer.Close(); closeErr != nil {
				finish(saveResult{err: fmt.Errorf("close chosen file: %w", closeErr)})
				return
			}
			path, stray := withMacroExtension(filepath.Clean(path))
			if stray {
				if removeErr := removeStray(strings.TrimSuffix(path, macro.Extension)); removeErr != nil {
					finish(saveResult{err: fmt.Errorf("remove placeholder file: %w", removeErr)})
					return
				}
			}
			finish(saveResult{path: path, ok: true})
		}, window)

		save.SetFileName(suggestedName)
		save.SetFilter(storage.NewExtensionFileFilter([]string{macro.Extension}))
		if location, err := storage.ListerForURI(storage.NewFileURI(dir)); err == nil {
			save.SetLocation(location)
		}
		window.SetCloseIntercept(func() { finish(saveResult{}) })

		window.Show()
		save.Resize(fyne.NewSize(700, 500))
		save.Show()
	})

	result := <-results
	return result.path, result.ok, result.err
}

// withMacroExtension appends the macro extension when the chosen name lacks
// it. stray reports that the dialog created a file under the bare name.
func withMacroExtension(path string) (string, bool) {
	if strings.EqualFold(filepath.Ext(path), macro.Extension) {
		return path, false
	}
	return path + macro.Extension, true
}

// removeStray deletes the empty file the save dialog creates for the chosen
// name. Non-empty files are left alone.
func removeStray(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() || info.Size() > 0 {
		return nil
	}
	return os.Remove(path)
}
