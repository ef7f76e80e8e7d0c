package rpc

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/librenews/weblog-bridge/internal/fault"
	"github.com/librenews/weblog-bridge/internal/xmlrpc"
)

// maxBodyBytes 限制单个 XML-RPC 请求体大小（长文草稿加上 base64 附件）。
const maxBodyBytes = 10 << 20

// Caller 执行一次已解码的方法调用
type Caller interface {
	HandleCall(ctx context.Context, method string, params xmlrpc.Params) (any, error)
}

// Handler XML-RPC 端点的HTTP处理器
type Handler struct {
	caller  Caller
	homeURL string
}

// New 创建XML-RPC处理器；homeURL 出现在 RSD 文档中。
func New(caller Caller, homeURL string) *Handler {
	return &Handler{caller: caller, homeURL: homeURL}
}

// RegisterRoutes 注册XML-RPC及编辑器发现路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/xmlrpc", h.handleCall)
	r.Get("/xmlrpc", h.handleGet)
	r.Get("/rsd.xml", h.handleRSD)
}

func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	call, err := xmlrpc.DecodeCall(body)
	if err != nil {
		log.Printf("[xmlrpc] parse error: %v", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFault(w, fault.CodeParse, "Request body too large")
			return
		}
		writeFault(w, fault.CodeParse, "Invalid XML-RPC request")
		return
	}

	// 参数中包含应用密码，只记录方法名和参数个数。
	log.Printf("[xmlrpc] method=%s params=%d", call.Method, len(call.Params))

	result, err := h.caller.HandleCall(r.Context(), call.Method, call.Params)
	if err != nil {
		code := fault.CodeOf(err)
		log.Printf("[xmlrpc] method=%s fault=%d: %v", call.Method, code, err)
		writeFault(w, code, err.Error())
		return
	}

	payload, err := xmlrpc.EncodeResponse(result)
	if err != nil {
		log.Printf("[xmlrpc] method=%s encode error: %v", call.Method, err)
		writeFault(w, fault.CodeInternal, "Failed to encode response")
		return
	}
	writeXML(w, http.StatusOK, payload)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	http.Error(w, "XML-RPC server accepts POST requests only.", http.StatusMethodNotAllowed)
}

// handleRSD 返回 Really Simple Discovery 文档，编辑器据此找到 API 入口。
func (h *Handler) handleRSD(w http.ResponseWriter, r *http.Request) {
	endpoint := baseURL(r) + "/xmlrpc"
	doc := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rsd version="1.0" xmlns="http://archipelago.phrasewise.com/rsd">
  <service>
    <engineName>weblog-bridge</engineName>
    <engineLink>https://github.com/librenews/weblog-bridge</engineLink>
    <homePageLink>%s</homePageLink>
    <apis>
      <api name="MetaWeblog" preferred="true" apiLink="%s" blogID="1" />
      <api name="Blogger" preferred="false" apiLink="%s" blogID="1" />
    </apis>
  </service>
</rsd>
`, html.EscapeString(h.homeURL), html.EscapeString(endpoint), html.EscapeString(endpoint))
	writeXML(w, http.StatusOK, []byte(doc))
}

// baseURL 根据请求推断外部可见地址，兼容反向代理。
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host
}

// writeFault 故障始终以 HTTP 200 返回，由 XML-RPC 层表达错误。
func writeFault(w http.ResponseWriter, code int, message string) {
	writeXML(w, http.StatusOK, xmlrpc.EncodeFault(code, message))
}

func writeXML(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		log.Printf("[xmlrpc] failed to write response: %v", err)
	}
}
