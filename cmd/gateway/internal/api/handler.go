// Package api serves the proxy endpoints and mounts the push channel.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/poller"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/protocol"
)

const (
	defaultIDs  = "bitcoin,ethereum,dogecoin"
	defaultVS   = "usd"
	defaultCoin = "bitcoin"
	defaultDays = "1"
)

type PriceService interface {
	CryptoPrices(ctx context.Context, ids []string, vs string) ([]byte, error)
	StockQuote(ctx context.Context, symbol string) ([]byte, error)
	CryptoHistory(ctx context.Context, coin, days string) ([]byte, error)
}

// Status reports liveness details for the health endpoint.
type Status interface {
	Subscribers() int
	PollerState() string
}

// LiveStatus reads Status from the running registry and poller.
type LiveStatus struct {
	Hub    interface{ Len() int }
	Poller interface{ State() poller.State }
}

func (s LiveStatus) Subscribers() int    { return s.Hub.Len() }
func (s LiveStatus) PollerState() string { return s.Poller.State().String() }

type CryptoPriceQuery struct {
	IDs string `form:"ids" binding:"omitempty,max=2048"`
	VS  string `form:"vs" binding:"omitempty,alpha,max=10"`
}

type StockQuoteQuery struct {
	Symbol string `form:"symbol" binding:"omitempty,max=16"`
}

type CryptoHistoryQuery struct {
	Coin string `form:"coin" binding:"omitempty,max=128"`
	Days string `form:"days" binding:"omitempty,max=8,alphanum"`
}

type Handler struct {
	svc    PriceService
	status Status
	logger *zap.Logger
}

func NewHandler(svc PriceService, status Status, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, status: status, logger: logger}
}

// RouterOptions carries the push-channel handlers mounted beside the API.
type RouterOptions struct {
	Stream  http.HandlerFunc
	WS      http.HandlerFunc
	Timeout time.Duration
}

func NewRouter(hd *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), CORS())

	r.GET("/", hd.Health)
	if opts.Stream != nil {
		r.GET("/stream", gin.WrapF(opts.Stream))
	}
	if opts.WS != nil {
		r.GET("/ws", gin.WrapF(opts.WS))
	}

	v := r.Group("/api")
	v.Use(Error(hd.logger), Timeout(opts.Timeout))
	{
		v.GET("/crypto-price", hd.CryptoPrice)
		v.GET("/stock-quote", hd.StockQuote)
		v.GET("/crypto-history", hd.CryptoHistory)
	}
	return r
}

func (hd *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, protocol.HealthResponse{
		Status:      "ok",
		Subscribers: hd.status.Subscribers(),
		Poller:      hd.status.PollerState(),
	})
}

func (hd *Handler) CryptoPrice(c *gin.Context) {
	var q CryptoPriceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.Error(err)
		return
	}
	ids := splitIDs(orDefault(q.IDs, defaultIDs))
	if len(ids) == 0 {
		c.Error(ErrNoIDs.WithDetails("ids=" + q.IDs))
		return
	}

	raw, err := hd.svc.CryptoPrices(c.Request.Context(), ids, strings.ToLower(orDefault(q.VS, defaultVS)))
	if err != nil {
		c.Error(err)
		return
	}
	c.Data(http.StatusOK, protocol.ContentTypeJSON, raw)
}

func (hd *Handler) StockQuote(c *gin.Context) {
	var q StockQuoteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.Error(err)
		return
	}
	symbol := strings.TrimSpace(q.Symbol)
	if symbol == "" {
		c.Error(ErrNoSymbol)
		return
	}

	raw, err := hd.svc.StockQuote(c.Request.Context(), symbol)
	if err != nil {
		c.Error(err)
		return
	}
	c.Data(http.StatusOK, protocol.ContentTypeJSON, raw)
}

func (hd *Handler) CryptoHistory(c *gin.Context) {
	var q CryptoHistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.Error(err)
		return
	}

	raw, err := hd.svc.CryptoHistory(c.Request.Context(), orDefault(q.Coin, defaultCoin), orDefault(q.Days, defaultDays))
	if err != nil {
		c.Error(err)
		return
	}
	c.Data(http.StatusOK, protocol.ContentTypeJSON, raw)
}

func splitIDs(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
