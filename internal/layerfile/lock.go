package layerfile

import (
	"time"

	"github.com/gofrs/flock"
)

const lockAcquireTimeout = 200 * time.Millisecond

// acquireWriteLock takes a best-effort advisory lock on path+".lock"
// around the tempfile-write + fsync + rename sequence. It guards against
// two processes on the same host racing the rename; it is not a
// substitute for external writer serialization (§5).
func acquireWriteLock(path string) (func(), error) {
	fl := flock.New(path + ".lock")
	deadline := time.Now().Add(lockAcquireTimeout)
	for {
		ok, err := fl.TryLock()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { fl.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return nil, errLockTimeout
		}
		time.Sleep(5 * time.Millisecond)
	}
}

var errLockTimeout = lockTimeoutError{}

type lockTimeoutError struct{}

func (lockTimeoutError) Error() string { return "timed out acquiring layer write lock" }
