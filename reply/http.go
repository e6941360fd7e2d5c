package reply

import (
	"context"
	"io"
	"net/http"

	liberr "github.com/nabbar/netcore/errors"
	"github.com/nabbar/netcore/handle"
	"github.com/nabbar/netcore/request"
)

func buildHTTPRequest(ctx context.Context, method string, req request.Request, body io.Reader) (*http.Request, liberr.Error) {
	h, err := handle.New(ctx, method, req, body)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	return h.Request(), nil
}
