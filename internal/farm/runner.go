package farm

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/gdsfactory/gplugins-go/pkg/errors"
	"github.com/gdsfactory/gplugins-go/pkg/fdtd"
	"github.com/gdsfactory/gplugins-go/pkg/pipeline"
	"github.com/gdsfactory/gplugins-go/pkg/sparam"
	"github.com/gdsfactory/gplugins-go/pkg/tool"
)

// Runner solves one submitted spec. Implementations must be safe for
// concurrent use; the pool calls one Runner from every worker.
type Runner func(ctx context.Context, spec *fdtd.Spec) (*sparam.Matrix, error)

// ToolRunner returns a Runner that shells out to an external FDTD
// solver. Each task gets its own directory under workDir holding the
// spec file; the command runs there and must leave the S-parameter CSV
// behind.
func ToolRunner(workDir string, cmd tool.Command) Runner {
	return func(ctx context.Context, spec *fdtd.Spec) (*sparam.Matrix, error) {
		dir := filepath.Join(workDir, uuid.New().String())
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create task dir %s", dir)
		}
		if err := spec.Write(filepath.Join(dir, pipeline.FDTDInputFile)); err != nil {
			return nil, err
		}
		c := cmd
		if c.Dir == "" {
			c.Dir = dir
		}
		if _, err := tool.Run(ctx, c); err != nil {
			return nil, err
		}
		return sparam.LoadCSV(filepath.Join(dir, pipeline.FDTDResultFile))
	}
}
