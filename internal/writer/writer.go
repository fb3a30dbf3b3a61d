// Package writer renders OPENROWSET statistics scripts and writes them to disk.
package writer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"rowsetstats/internal/common"
	"rowsetstats/pkg/errors"
)

// Kind selects between the create and drop variant of a script
type Kind int

const (
	Create Kind = iota
	Drop
)

// Verb is the word used in the PRINT line
func (k Kind) Verb() string {
	if k == Drop {
		return "Dropping"
	}
	return "Creating"
}

// Procedure is the system procedure invoked per column
func (k Kind) Procedure() string {
	if k == Drop {
		return "sys.sp_drop_openrowset_statistics"
	}
	return "sys.sp_create_openrowset_statistics"
}

// FileName is the script's file name inside the view directory
func (k Kind) FileName() string {
	if k == Drop {
		return "drop_openrowset_stats.txt"
	}
	return "create_openrowset_stats.txt"
}

func (k Kind) String() string {
	if k == Drop {
		return "drop"
	}
	return "create"
}

// Render returns the script for columns in order. The clause must already be escaped.
//
// Each column produces:
//
//	PRINT '<Verb> stats for column [<col>]...'
//	GO
//	EXEC <procedure> N'SELECT [<col>] FROM <clause> AS [q1]';
//	GO
//	<blank line>
func Render(kind Kind, columns []string, clause string) []byte {
	var buf bytes.Buffer
	for _, column := range columns {
		fmt.Fprintf(&buf, "PRINT '%s stats for column [%s]...'\n", kind.Verb(), column)
		buf.WriteString("GO\n")
		fmt.Fprintf(&buf, "EXEC %s N'SELECT [%s] FROM %s AS [q1]';\n", kind.Procedure(), column, clause)
		buf.WriteString("GO\n\n")
	}
	return buf.Bytes()
}

// Write renders the script to path, creating parent directories and replacing any existing file
func Write(path string, kind Kind, columns []string, clause string) error {
	if err := os.MkdirAll(filepath.Dir(path), common.DirPermissionNormal); err != nil {
		return errors.FilesystemError("Failed to create output directory", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, Render(kind, columns, clause), common.FilePermissionNormal); err != nil {
		return errors.FilesystemError(fmt.Sprintf("Failed to write %s statistics script", kind), path, err)
	}

	return nil
}

// Writer places the create and drop scripts of a view under their output roots
type Writer struct {
	CreateRoot string
	DropRoot   string
}

// New creates a Writer for the given roots
func New(createRoot, dropRoot string) *Writer {
	return &Writer{CreateRoot: createRoot, DropRoot: dropRoot}
}

// Path returns <root>/<view>/<file> for kind. A view name that would leave the root is rejected.
func (w *Writer) Path(kind Kind, view string) (string, error) {
	root := w.CreateRoot
	if kind == Drop {
		root = w.DropRoot
	}

	path, err := common.JoinPath(root, view, kind.FileName())
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodePathEscape, "Invalid output path").
			WithContext("view", view).
			WithContext("root", root)
	}
	return path, nil
}

// WriteView writes both scripts for view and returns their paths
func (w *Writer) WriteView(view string, columns []string, clause string) (string, string, error) {
	createPath, err := w.Path(Create, view)
	if err != nil {
		return "", "", err
	}
	dropPath, err := w.Path(Drop, view)
	if err != nil {
		return "", "", err
	}

	if err := Write(createPath, Create, columns, clause); err != nil {
		return "", "", err
	}
	if err := Write(dropPath, Drop, columns, clause); err != nil {
		return createPath, "", err
	}

	return createPath, dropPath, nil
}
