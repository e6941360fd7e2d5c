package request_test

import (
	"testing"

	"github.com/nabbar/netcore/policy"
	"github.com/nabbar/netcore/request"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsEmptyURL(t *testing.T) {
	r := request.New("")
	require.Error(t, r.Validate())
}

func TestValidateRejectsEmptyHeaderName(t *testing.T) {
	r := request.New("http://example.com").WithHeader("", "v")
	require.Error(t, r.Validate())
}

func TestValidateRejectsInvalidRange(t *testing.T) {
	r := request.New("http://example.com").WithRange(10, 5)
	require.Error(t, r.Validate())

	ok := request.New("http://example.com").WithRange(0, 10)
	require.NoError(t, ok.Validate())
}

// TestCloneIsCopyOnWrite is testable property 3's precondition: a
// derived Request must not retroactively change the one it was
// derived from.
func TestCloneIsCopyOnWrite(t *testing.T) {
	base := request.New("http://example.com")
	derived := base.WithHeader("X-Test", "1")

	require.Empty(t, base.Headers())
	require.Len(t, derived.Headers(), 1)
}

func TestHeaderValueCaseInsensitive(t *testing.T) {
	r := request.New("http://example.com").WithHeader("Content-Type", "application/json")
	v, ok := r.HeaderValue("content-type")
	require.True(t, ok)
	require.Equal(t, "application/json", v)
}

func TestEquivalentSameInputsSameResult(t *testing.T) {
	a := request.New("http://example.com").
		WithHeader("A", "1").
		WithPriority(policy.High)
	b := request.New("http://example.com").
		WithHeader("A", "1").
		WithPriority(policy.High)

	require.True(t, a.Equivalent(b))

	c := b.WithPriority(policy.Low)
	require.False(t, a.Equivalent(c))
}
