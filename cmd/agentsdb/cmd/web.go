package cmd

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/agentsdb/agentsdb-go/internal/layerfile"
	"github.com/agentsdb/agentsdb-go/internal/search"
)

// newWebCmd launches a local web UI for browsing layers and running
// searches against the store under --root. It delegates routing to
// gin, the way SetupRoutes does for the pack's other HTTP-facing
// example; it is a thin read-only API, not a TUI.
func newWebCmd() *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve a local read-only web UI over the store under --root",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := writerFor(cmd)

			gin.SetMode(gin.ReleaseMode)
			r := gin.New()
			r.Use(gin.Recovery())

			r.GET("/healthz", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"ok": true})
			})

			r.GET("/layers", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"checks": runValidation()})
			})

			r.GET("/layers/:name", func(c *gin.Context) {
				id, ok := layerfile.ParseLayerID(c.Param("name"))
				if !ok {
					c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unknown layer"})
					return
				}
				lf, err := layerfile.Open(layerPath(id.String()))
				if err != nil {
					c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
					return
				}
				chunks, err := lf.ReadAllChunks()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
					return
				}
				c.JSON(http.StatusOK, gin.H{"ok": true, "path": lf.Path, "chunks": chunks})
			})

			r.GET("/search", func(c *gin.Context) {
				embedder := newEmbedder()
				set, err := openSet(embedder)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
					return
				}
				results, err := search.Run(c.Request.Context(), set, embedder, search.Request{
					QueryText: c.Query("q"),
					K:         10,
					UseIndex:  useIndex,
				})
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
					return
				}
				c.JSON(http.StatusOK, gin.H{"ok": true, "results": results})
			})

			w.Successf("Serving web UI on %s", bind)
			return r.Run(bind)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "127.0.0.1:8420", "Address to bind the web server to")
	return cmd
}
