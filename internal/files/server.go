package files

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"lms-edge/internal/proxy"
	"lms-edge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Server resolves a requested file against a priority-ordered list of
// local storage roots and falls back to the backend's own file endpoint
// when no local copy exists. Multiple roots exist for storage-layout
// migrations: new uploads land in the first root, older files stay where
// they are until moved.
type Server struct {
	roots   []string
	backend *proxy.Proxy
}

func NewServer(roots []string, backend *proxy.Proxy) *Server {
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		if r = strings.TrimSpace(r); r != "" {
			cleaned = append(cleaned, filepath.Clean(r))
		}
	}
	return &Server{roots: cleaned, backend: backend}
}

// Serve handles GET /files/*path.
func (s *Server) Serve(c *gin.Context) {
	rel, ok := sanitize(c.Param("path"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid path"})
		return
	}

	for _, root := range s.roots {
		full := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		s.serveLocal(c, full, info.Size())
		return
	}

	if s.backend == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	// No local copy; the backend may still have it.
	s.backend.Forward(c, proxy.Options{})
}

// sanitize normalizes the wildcard path and rejects anything that could
// escape a storage root. The result is a clean, relative slash path.
func sanitize(p string) (string, bool) {
	p = strings.TrimPrefix(p, "/")
	if p == "" || strings.Contains(p, "\x00") {
		return "", false
	}
	cleaned := path.Clean("/" + p)
	if cleaned == "/" || strings.HasPrefix(cleaned, "/..") {
		return "", false
	}
	return strings.TrimPrefix(cleaned, "/"), true
}

func (s *Server) serveLocal(c *gin.Context, full string, size int64) {
	f, err := os.Open(full)
	if err != nil {
		logger.FromGin(c).Warn("stat succeeded but open failed", "file", full, "err", err)
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(full))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Accept-Ranges", "bytes")

	start, end, ok, err := parseRange(c.GetHeader("Range"), size)
	if err != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		c.AbortWithStatus(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if !ok {
		c.Header("Content-Length", strconv.FormatInt(size, 10))
		c.Status(http.StatusOK)
		io.Copy(c.Writer, f)
		return
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	length := end - start + 1
	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	c.Header("Content-Length", strconv.FormatInt(length, 10))
	c.Status(http.StatusPartialContent)
	io.CopyN(c.Writer, f, length)
}

var errUnsatisfiable = errors.New("unsatisfiable range")

// parseRange handles a single bytes range. ok is false for an absent or
// syntactically foreign header, in which case the whole file is served;
// err marks a well-formed range that cannot be satisfied. Multi-range
// requests fall through to a full 200 rather than a 416: media players
// only ever send one range.
func parseRange(header string, size int64) (start, end int64, ok bool, err error) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, 0, false, nil
	}

	from, to, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false, nil
	}

	switch {
	case from == "" && to != "":
		// Suffix range: last N bytes.
		n, convErr := strconv.ParseInt(to, 10, 64)
		if convErr != nil || n <= 0 {
			return 0, 0, false, nil
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true, nil
	case from != "":
		start, convErr := strconv.ParseInt(from, 10, 64)
		if convErr != nil || start < 0 {
			return 0, 0, false, nil
		}
		if start >= size {
			return 0, 0, false, errUnsatisfiable
		}
		end := size - 1
		if to != "" {
			end, convErr = strconv.ParseInt(to, 10, 64)
			if convErr != nil || end < start {
				return 0, 0, false, nil
			}
			if end >= size {
				end = size - 1
			}
		}
		return start, end, true, nil
	default:
		return 0, 0, false, nil
	}
}
