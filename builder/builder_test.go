package builder_test

import (
	"testing"

	"github.com/nabbar/netcore/builder"
	"github.com/nabbar/netcore/policy"
	"github.com/stretchr/testify/require"
)

// TestFlatFluentEquivalence is testable property 3:
// build(flat).equivalent(fluent) for identical inputs.
func TestFlatFluentEquivalence(t *testing.T) {
	flatReq, err := builder.NewFlat("http://example.com/api").
		Header("X-Trace", "abc").
		AuthBearer("token123").
		Priority(policy.High).
		Build()
	require.NoError(t, err)

	fluentReq, err := builder.NewFluent("http://example.com/api").
		Header("X-Trace", "abc").
		AuthBearer("token123").
		Priority(policy.High).
		SendGet()
	require.NoError(t, err)

	require.True(t, flatReq.Equivalent(fluentReq))
}

func TestFlatBuildRejectsInvalidURL(t *testing.T) {
	_, err := builder.NewFlat("").Build()
	require.Error(t, err)
}

func TestAddParamsEncodesQuery(t *testing.T) {
	req, err := builder.NewFlat("http://example.com").AddParams("q", "a b").Build()
	require.NoError(t, err)
	require.Contains(t, req.URL(), "q=a+b")
}
