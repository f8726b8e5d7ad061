// Package web embeds the page served by the monitoring server.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
)

// DevDirEnv names the environment variable that points the server at a
// directory of pages on disk instead of the embedded ones.
const DevDirEnv = "CSIM_MONITOR_DEV_DIR"

//go:embed dist/*
var staticAssets embed.FS

// GetAssets returns the pages to serve.
func GetAssets() http.FileSystem {
	if dir, ok := os.LookupEnv(DevDirEnv); ok && dir != "" {
		return http.Dir(dir)
	}

	subFS, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(subFS)
}
