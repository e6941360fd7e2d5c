package reply_test

import (
	"testing"

	"github.com/nabbar/netcore/policy"
	"github.com/nabbar/netcore/reply"
	"github.com/nabbar/netcore/request"
	"github.com/stretchr/testify/require"
)

func TestBuildClientAppliesFollowRedirects(t *testing.T) {
	req := request.New("http://example.com").WithFollowRedirects(false)
	c, err := reply.BuildClient(req, "example.com", nil, nil)
	require.Nil(t, err)
	require.NotNil(t, c.CheckRedirect)
}

func TestBuildClientDropsInvalidProxy(t *testing.T) {
	req := request.New("http://example.com").WithProxy(policy.Proxy{Type: policy.ProxyHTTP})
	c, err := reply.BuildClient(req, "example.com", nil, nil)
	require.Nil(t, err)
	require.NotNil(t, c)
}

func TestBuildClientRejectsUnreadableCACert(t *testing.T) {
	req := request.New("http://example.com").WithSSL(policy.SSL{VerifyPeer: true, CACertPath: "/nonexistent/ca.pem"})
	_, err := reply.BuildClient(req, "example.com", nil, nil)
	require.NotNil(t, err)
}
