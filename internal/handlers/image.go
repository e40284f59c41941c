package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

type ImageHandler struct {
	dir string
}

func NewImageHandler(dir string) *ImageHandler {
	return &ImageHandler{dir: dir}
}

// ServeImage serves files below the image directory. Anything that does not
// resolve to a regular file inside it is a 404.
func (h *ImageHandler) ServeImage(c *gin.Context) {
	name := path.Clean("/" + c.Param("filepath"))
	if name == "/" {
		imageNotFound(c)
		return
	}

	full := filepath.Join(h.dir, filepath.FromSlash(name))
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		imageNotFound(c)
		return
	}
	c.File(full)
}

func imageNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"message": "Image not found"})
}
