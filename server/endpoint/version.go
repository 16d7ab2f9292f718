package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/serviceclient/version"
)

// Version reports build information and the client User-Agent.
func Version() gin.HandlerFunc {
	return func(c *gin.Context) {
		info := version.GetVersionInfo()
		c.JSON(http.StatusOK, gin.H{
			"name":       info.Name,
			"version":    info.Version,
			"git_commit": info.GitCommit,
			"build_time": info.BuildTime,
			"go_version": info.GoVersion,
			"is_release": info.IsRelease,
			"user_agent": version.UserAgent(),
		})
	}
}
