package debugapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

const (
	// maxConcurrentReads is the number of checkpoint reads served at once
	maxConcurrentReads = 8
	// readWaitTimeout is how long a request waits for a free read slot
	readWaitTimeout = 5 * time.Second
)

// readController is used to limit the concurrent reads of the last
// checkpoint, which hold its read lock and delay the next checkpoint
type readController struct {
	smphr   *semaphore.Weighted
	timeout time.Duration
}

func newReadController(maxReads int, timeout time.Duration) *readController {
	return &readController{
		smphr:   semaphore.NewWeighted(int64(maxReads)),
		timeout: timeout,
	}
}

// Acquire reserves a read slot, waiting for at most the controller timeout
func (rc *readController) Acquire() (context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(context.Background(), rc.timeout)
	return cancel, rc.smphr.Acquire(ctx, 1)
}

// Release frees a read slot
func (rc *readController) Release() {
	rc.smphr.Release(1)
}

// middleware rejects the request with 503 when no read slot frees up in time
func (rc *readController) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cancel, err := rc.Acquire()
		defer cancel()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorMsg{
				Message: "too many concurrent reads",
			})
			return
		}
		defer rc.Release()
		c.Next()
	}
}
