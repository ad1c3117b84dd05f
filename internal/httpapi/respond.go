package httpapi

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/apperr"
	"attendtrack/internal/validation"
)

const dateLayout = "2006-01-02"

// fail renders err as {"error": msg, "fields": {...}} with the status of its kind.
func fail(c *gin.Context, err error) {
	e := apperr.As(err)
	if e.Kind == apperr.KindInternal {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	body := gin.H{"error": e.Error()}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	c.AbortWithStatusJSON(e.Status(), body)
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, validation.FromError(err))
		return false
	}
	return true
}

func ok(c *gin.Context, v any) {
	c.JSON(http.StatusOK, v)
}

func created(c *gin.Context, v any) {
	c.JSON(http.StatusCreated, v)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func invalid(field string, err error) error {
	return apperr.Validation(err.Error(), map[string]string{field: err.Error()})
}

// queryTime parses an RFC 3339 timestamp or a YYYY-MM-DD date. A bare date
// given for an upper bound covers the whole day.
func queryTime(c *gin.Context, key string, upper bool) (*time.Time, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, apperr.Validation("invalid "+key, map[string]string{key: "must be YYYY-MM-DD or RFC 3339"})
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func queryRange(c *gin.Context) (from, to *time.Time, err error) {
	if from, err = queryTime(c, "from", false); err != nil {
		return nil, nil, err
	}
	if to, err = queryTime(c, "to", true); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.Validation("invalid "+key, map[string]string{key: "must be a non-negative integer"})
	}
	return n, nil
}

func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
