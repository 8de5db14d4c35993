package http

import (
	"errors"

	"github.com/valyala/fasthttp"

	"github.com/sot-tech/mochi-redis-tracker/announce"
	"github.com/sot-tech/mochi-redis-tracker/bittorrent"
	"github.com/sot-tech/mochi-redis-tracker/engine"
)

// handleAnnounce implements GET /announce (§6, §4.2, §4.3). Errors are
// surfaced as 400 with a short plain-text reason (§7); store failures
// during Phase A are surfaced as a generic 500 without leaking the cause.
func (f *Frontend) handleAnnounce(ctx *fasthttp.RequestCtx) {
	clientIP := ctx.RemoteIP()
	if clientIP.To4() == nil {
		writeClientError(ctx, bittorrent.ErrIPv6NotSupported)
		return
	}

	rawQuery := bittorrent.EscapeBarePercent(ctx.URI().QueryString())

	a, err := announce.Parse(clientIP, rawQuery)
	if err != nil {
		writeClientError(ctx, err)
		return
	}

	body, err := f.engine.Announce(ctx, a)
	if err != nil {
		var storeErr *engine.ErrStore
		if errors.As(err, &storeErr) {
			logger.Warn().Err(storeErr.Cause).Msg("phase A store error")
		}
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetContentType("text/plain")
		ctx.SetBodyString("internal server error")
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("text/plain")
	ctx.SetBody(body)
}

// writeClientError surfaces a bittorrent.ClientError (or any other error)
// as a 400 with a short plain-text body, per §7's client-input taxonomy.
// Client input errors are not logged per-request.
func writeClientError(ctx *fasthttp.RequestCtx, err error) {
	msg := "Failed to parse announce"
	var clientErr bittorrent.ClientError
	if errors.As(err, &clientErr) {
		msg = clientErr.Error()
	}
	ctx.SetStatusCode(fasthttp.StatusBadRequest)
	ctx.SetContentType("text/plain")
	ctx.SetBodyString(msg)
}

// handleHealthz implements GET /healthz (§6): 200 "OK" if a PING to the
// store succeeds, else 500 "OOF".
func (f *Frontend) handleHealthz(ctx *fasthttp.RequestCtx) {
	if err := f.store.Ping(ctx); err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("OOF")
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString("OK")
}
