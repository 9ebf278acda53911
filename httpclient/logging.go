package httpclient

import (
	nethttp "net/http"
	"strconv"
)

const (
	msgClientRequest  = "HTTP client request"
	msgClientResponse = "HTTP client response"
)

// logRequest logs the outgoing request at debug level
func (c *client) logRequest(req *nethttp.Request, body []byte, requestID string) {
	event := c.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", requestID)

	if len(req.Header) > 0 {
		event = event.Int("header_count", len(req.Header))
	}
	if len(body) > 0 {
		event = event.Int("body_size", len(body))
	}
	if c.config.LogPayloads {
		event = event.Interface("headers", flattenHeaders(req.Header))
		if len(body) > 0 {
			preview, truncated := c.preview(body)
			event = event.Str("body_truncated", strconv.FormatBool(truncated)).Bytes("body_preview", preview)
		}
	}
	event.Msg(msgClientRequest)
}

// logResponse logs the incoming response at debug level
func (c *client) logResponse(resp *Response, requestID string) {
	event := c.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Str("request_id", requestID)

	if len(resp.Body) > 0 {
		event = event.Int("body_size", len(resp.Body))
	}
	if c.config.LogPayloads {
		event = event.Interface("headers", flattenHeaders(resp.Headers))
		if len(resp.Body) > 0 {
			preview, truncated := c.preview(resp.Body)
			event = event.Str("body_truncated", strconv.FormatBool(truncated)).Bytes("body_preview", preview)
		}
	}
	event.Msg(msgClientResponse)
}

func (c *client) preview(body []byte) ([]byte, bool) {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = DefaultMaxPayloadLogBytes
	}
	if len(body) <= limit {
		return body, false
	}
	return body[:limit], true
}

func flattenHeaders(h nethttp.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key := range h {
		out[key] = h.Get(key)
	}
	return out
}
