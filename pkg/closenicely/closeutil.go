package closenicely

import (
	"io"
	"os"

	"go.uber.org/zap"
)

// OrDebug closes `closer`, logging a failure at debug level. Only use it for handles whose close error
// cannot lose data, such as files opened for reading.
func OrDebug(closer io.Closer) {
	FuncOrDebug(closer.Close)
}

func FuncOrDebug(closer func() error) {
	if err := closer(); err != nil {
		zap.L().Debug("Failed to close resource", zap.Error(err))
	}
}

// RemoveAllOrDebug removes a scratch directory.
func RemoveAllOrDebug(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		zap.L().Debug("Failed to remove directory", zap.String("dir", dir), zap.Error(err))
	}
}
