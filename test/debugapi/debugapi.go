package debugapi

import (
	"context"
	"net"
	"net/http"
	"time"
	"tokamak-zkrollup/common"
	"tokamak-zkrollup/database/statedb"
	"tokamak-zkrollup/log"
	"tokamak-zkrollup/synchronizer"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func handleNoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": "404 page not found",
	})
}

type errorMsg struct {
	Message string
}

func badReq(err error, c *gin.Context) {
	log.Errorw("Bad request", "err", err)
	c.JSON(http.StatusBadRequest, errorMsg{
		Message: err.Error(),
	})
}

func notFound(err error, c *gin.Context) {
	c.JSON(http.StatusNotFound, errorMsg{
		Message: err.Error(),
	})
}

func serverErr(err error, c *gin.Context) {
	log.Errorw("Internal server error", "err", err)
	c.JSON(http.StatusInternalServerError, errorMsg{
		Message: err.Error(),
	})
}

// DebugAPI is an http API with debugging endpoints
type DebugAPI struct {
	addr    string
	stateDB *statedb.StateDB // blockbuilder statedb
	sync    *synchronizer.Synchronizer
	reads   *readController
}

// NewDebugAPI creates a new DebugAPI.  sync may be nil when the node runs
// without an L1 connection.
func NewDebugAPI(addr string, stateDB *statedb.StateDB, sync *synchronizer.Synchronizer) *DebugAPI {
	return &DebugAPI{
		addr:    addr,
		stateDB: stateDB,
		sync:    sync,
		reads:   newReadController(maxConcurrentReads, readWaitTimeout),
	}
}

func (a *DebugAPI) handleAccount(c *gin.Context) {
	uri := struct {
		ID uint32 `uri:"id"`
	}{}
	if err := c.ShouldBindUri(&uri); err != nil {
		badReq(err, c)
		return
	}
	account, err := a.stateDB.LastGetAccount(common.AccountID(uri.ID))
	if common.Is(err, common.ErrAccountNotFound) {
		notFound(err, c)
		return
	} else if err != nil {
		serverErr(err, c)
		return
	}
	c.JSON(http.StatusOK, common.AccountState{ID: common.AccountID(uri.ID), Account: account})
}

func (a *DebugAPI) handleAccounts(c *gin.Context) {
	var accounts []common.AccountState
	if err := a.stateDB.LastRead(func(sdb *statedb.Last) error {
		var err error
		accounts, err = sdb.GetAccounts()
		return err
	}); err != nil {
		serverErr(err, c)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (a *DebugAPI) handleCurrentBlock(c *gin.Context) {
	var blockNum common.BlockNumber
	if err := a.stateDB.LastRead(func(sdb *statedb.Last) error {
		var err error
		blockNum, err = sdb.GetCurrentBlock()
		return err
	}); err != nil {
		serverErr(err, c)
		return
	}
	c.JSON(http.StatusOK, blockNum)
}

func (a *DebugAPI) handleSyncStats(c *gin.Context) {
	if a.sync == nil {
		c.JSON(http.StatusServiceUnavailable, errorMsg{Message: "synchronizer disabled"})
		return
	}
	c.JSON(http.StatusOK, a.sync.Stats())
}

// Router returns the gin engine with the debug endpoints
func (a *DebugAPI) Router() *gin.Engine {
	api := gin.Default()
	api.NoRoute(handleNoRoute)
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))

	debugAPI := api.Group("/debug")
	sdb := debugAPI.Group("/sdb", a.reads.middleware())
	sdb.GET("block", a.handleCurrentBlock)
	sdb.GET("accounts", a.handleAccounts)
	sdb.GET("accounts/:id", a.handleAccount)
	debugAPI.GET("sync/stats", a.handleSyncStats)
	return api
}

// Run starts the http server of the DebugAPI.  To stop it, pass a context
// with cancellation.
func (a *DebugAPI) Run(ctx context.Context) error {
	debugAPIServer := &http.Server{
		Handler: a.Router(),
		// Use some hardcoded numbers that are suitable for testing
		ReadTimeout:    30 * time.Second, //nolint:gomnd
		WriteTimeout:   30 * time.Second, //nolint:gomnd
		MaxHeaderBytes: 1 << 20,          //nolint:gomnd
	}
	debugAPIListener, err := net.Listen("tcp", a.addr)
	if err != nil {
		return common.Wrap(err)
	}
	log.Infof("DebugAPI is ready at %v", a.addr)
	go func() {
		if err := debugAPIServer.Serve(debugAPIListener); err != nil &&
			common.Unwrap(err) != http.ErrServerClosed {
			log.Fatalf("Listen: %s\n", err)
		}
	}()

	<-ctx.Done()
	log.Info("Stopping DebugAPI...")
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:gomnd
	defer cancel()
	if err := debugAPIServer.Shutdown(ctxTimeout); err != nil {
		return common.Wrap(err)
	}
	log.Info("DebugAPI done")
	return nil
}
