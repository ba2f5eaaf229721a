package applog

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key the request id middleware writes.
const RequestIDKey = "request_id"

type entry struct {
	TS     string                 `json:"ts"`
	Level  string                 `json:"level"`
	ReqID  string                 `json:"req_id,omitempty"`
	IP     string                 `json:"ip,omitempty"`
	Method string                 `json:"method,omitempty"`
	Path   string                 `json:"path,omitempty"`
	UserID int64                  `json:"user_id,omitempty"`
	Action string                 `json:"action"`
	Err    string                 `json:"err,omitempty"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

func write(level string, c *gin.Context, action string, err error, fields map[string]interface{}) {
	e := entry{TS: time.Now().UTC().Format(time.RFC3339), Level: level, Action: action, Fields: fields}
	if c != nil {
		e.IP = c.ClientIP()
		e.ReqID = c.GetString(RequestIDKey)
		if c.Request != nil {
			e.Method = c.Request.Method
			e.Path = c.Request.URL.Path
		}
		if id, ok := c.Get("user_id"); ok {
			e.UserID, _ = id.(int64)
		}
	}
	if err != nil {
		e.Err = err.Error()
	}
	b, _ := json.Marshal(e)
	log.Println(string(b))
}

func Info(c *gin.Context, action string, fields map[string]interface{}) {
	write("info", c, action, nil, fields)
}

func Audit(c *gin.Context, action string, fields map[string]interface{}) {
	write("audit", c, action, nil, fields)
}

func Security(c *gin.Context, action string, fields map[string]interface{}) {
	write("warn", c, action, nil, fields)
}

func Error(c *gin.Context, action string, err error, fields map[string]interface{}) {
	write("error", c, action, err, fields)
}
