package proxy

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RewritePath maps edge-facing route names to the backend's route names.
// Returns "" when no rewrite applies and the incoming path is used as-is.
func RewritePath(path string) string {
	// The UI calls these "organization nodes"; the backend still calls
	// them branches.
	if path == "/api/organization-nodes" || strings.HasPrefix(path, "/api/organization-nodes/") {
		return "/api/branches" + strings.TrimPrefix(path, "/api/organization-nodes")
	}
	return ""
}

// ForwardCourseDelete translates DELETE /api/courses/{id} into the bulk
// operation the backend actually implements:
//
//	DELETE /api/courses
//	{"ids": ["{id}"], "action": "delete"}
//
// The single-resource route does not exist on the backend; this is an
// explicit request transformation, not a silent route rewrite.
func (p *Proxy) ForwardCourseDelete(c *gin.Context, courseID string) {
	body, err := json.Marshal(map[string]any{
		"ids":    []string{courseID},
		"action": "delete",
	})
	if err != nil {
		badGateway(c, "invalid delete payload")
		return
	}
	p.Forward(c, Options{
		PathOverride: "/api/courses",
		Method:       http.MethodDelete,
		Body:         body,
	})
}
