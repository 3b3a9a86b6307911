package paramstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	names  []string
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.names = append(f.names, *in.Name)
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func modelParam(v string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("/seafood/config/openai_model"), Value: strPtr(v),
	}}
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: modelParam("gpt-4o-mini")}
	client, err := New(api, 0)
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), " /seafood/config/openai_model ")
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", v)
	require.Equal(t, []string{"/seafood/config/openai_model"}, api.names)
}

func TestGetParameter_NoCacheWithZeroTTL(t *testing.T) {
	api := &fakeAPI{getOut: modelParam("m")}
	client, err := New(api, 0)
	require.NoError(t, err)
	for range 3 {
		_, err = client.GetParameter(context.Background(), "/seafood/config/openai_model")
		require.NoError(t, err)
	}
	require.Len(t, api.names, 3)
}

func TestGetParameter_CachesUntilExpiry(t *testing.T) {
	api := &fakeAPI{getOut: modelParam("gpt-a")}
	client, err := New(api, time.Minute)
	require.NoError(t, err)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	v, err := client.GetParameter(context.Background(), "/seafood/config/openai_model")
	require.NoError(t, err)
	require.Equal(t, "gpt-a", v)

	api.getOut = modelParam("gpt-b")
	now = now.Add(30 * time.Second)
	v, err = client.GetParameter(context.Background(), "/seafood/config/openai_model")
	require.NoError(t, err)
	require.Equal(t, "gpt-a", v)
	require.Len(t, api.names, 1)

	now = now.Add(31 * time.Second)
	v, err = client.GetParameter(context.Background(), "/seafood/config/openai_model")
	require.NoError(t, err)
	require.Equal(t, "gpt-b", v)
	require.Len(t, api.names, 2)
}

func TestGetParameter_ErrorsAreNotCached(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("throttled")}
	client, err := New(api, time.Minute)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "/seafood/open-ai-token")
	require.ErrorContains(t, err, "throttled")

	api.getErr = nil
	api.getOut = modelParam(`{"token":"sk"}`)
	v, err := client.GetParameter(context.Background(), "/seafood/open-ai-token")
	require.NoError(t, err)
	require.Equal(t, `{"token":"sk"}`, v)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: nil}}}
	client, err := New(api, 0)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "missing value")
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "not initialized")
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{}, 0)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, 0)
	require.ErrorContains(t, err, "must not be nil")

	_, err = New(&fakeAPI{}, -time.Second)
	require.ErrorContains(t, err, "negative")
}
