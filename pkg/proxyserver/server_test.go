package proxyserver_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/colorking/pkg/imagegen"
	"github.com/germanamz/colorking/pkg/imagegen/proxy"
	"github.com/germanamz/colorking/pkg/proxyserver"
)

type upstream struct {
	urls     []string
	err      error
	outlines []string
	convErr  error
	params   imagegen.Params
	key      string
	style    imagegen.OutlineStyle
}

func (u *upstream) SubmitAndAwait(_ context.Context, p imagegen.Params, credential string) ([]string, error) {
	u.params, u.key = p, credential
	return u.urls, u.err
}

func (u *upstream) ConvertToOutline(_ context.Context, _ string, style imagegen.OutlineStyle, credential string) ([]string, error) {
	u.style, u.key = style, credential
	return u.outlines, u.convErr
}

type generateOnly struct{ imagegen.ProviderFunc }

func serve(t *testing.T, p imagegen.Provider, cfg proxyserver.Config) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(proxyserver.New(p, cfg, nil).Handler())
	t.Cleanup(srv.Close)

	return srv
}

func post(t *testing.T, url, body string, header map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func TestGenerate_RoundTripThroughClient(t *testing.T) {
	up := &upstream{urls: []string{"https://i/1", "https://i/2"}}
	srv := serve(t, up, proxyserver.Config{VendorKey: "sk-server"})

	urls, err := proxy.New(srv.URL, "").SubmitAndAwait(context.Background(), imagegen.Params{Prompt: "a cat in a crown", NumOutputs: 2}, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://i/1", "https://i/2"}, urls)
	assert.Equal(t, "sk-server", up.key)
	assert.Equal(t, 2, up.params.NumOutputs)
}

func TestGenerate_ResponseShape(t *testing.T) {
	up := &upstream{urls: []string{"https://i/1"}}
	srv := serve(t, up, proxyserver.Config{VendorKey: "sk"})

	resp := post(t, srv.URL+proxy.GeneratePath, `{"prompt":"boats"}`, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var body proxy.GenerateResponse
	require.NoError(t, decodeBody(resp, &body))
	assert.Equal(t, []proxy.Image{{ID: "1", URL: "https://i/1", Alt: "Generated image 1: boats"}}, body.Images)
	assert.Equal(t, 4, up.params.NumOutputs)
}

func TestGenerate_CountCapped(t *testing.T) {
	up := &upstream{urls: []string{"u"}}
	srv := serve(t, up, proxyserver.Config{VendorKey: "sk"})

	resp := post(t, srv.URL+proxy.GeneratePath, `{"prompt":"boats","count":12}`, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, up.params.NumOutputs)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		cfg    proxyserver.Config
		up     *upstream
		body   string
		header map[string]string
		status int
		msg    string
	}{
		{"no vendor key", proxyserver.Config{}, &upstream{}, `{"prompt":"x"}`, nil, 500, "OpenAI API key not configured"},
		{"missing prompt", proxyserver.Config{VendorKey: "sk"}, &upstream{}, `{}`, nil, 400, "Prompt is required"},
		{"bad json", proxyserver.Config{VendorKey: "sk"}, &upstream{}, `{`, nil, 400, "invalid JSON body"},
		{"upstream failure", proxyserver.Config{VendorKey: "sk"}, &upstream{err: imagegen.Errorf(imagegen.KindProvider, "x")}, `{"prompt":"x"}`, nil, 500, "Failed to generate any images"},
		{"zero images", proxyserver.Config{VendorKey: "sk"}, &upstream{}, `{"prompt":"x"}`, nil, 500, "Failed to generate any images"},
		{"missing access key", proxyserver.Config{VendorKey: "sk", AccessKey: "secret"}, &upstream{urls: []string{"u"}}, `{"prompt":"x"}`, nil, 401, "invalid access key"},
		{"wrong access key", proxyserver.Config{VendorKey: "sk", AccessKey: "secret"}, &upstream{urls: []string{"u"}}, `{"prompt":"x"}`, map[string]string{"Authorization": "Bearer nope"}, 401, "invalid access key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.up, tt.cfg)

			resp := post(t, srv.URL+proxy.GeneratePath, tt.body, tt.header)

			assert.Equal(t, tt.status, resp.StatusCode)

			var body proxy.ErrorResponse
			require.NoError(t, decodeBody(resp, &body))
			assert.Contains(t, body.Error, tt.msg)
			assert.NotContains(t, body.Error, "sk")
		})
	}
}

func TestGenerate_AccessKeyAccepted(t *testing.T) {
	up := &upstream{urls: []string{"u"}}
	srv := serve(t, up, proxyserver.Config{VendorKey: "sk", AccessKey: "secret"})

	urls, err := proxy.New(srv.URL, "").SubmitAndAwait(context.Background(), imagegen.Params{Prompt: "x"}, "secret")

	require.NoError(t, err)
	assert.Equal(t, []string{"u"}, urls)
}

func TestPreflight(t *testing.T) {
	srv := serve(t, &upstream{}, proxyserver.Config{AccessKey: "secret"})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+proxy.GeneratePath, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "apikey")
}

func TestConvert(t *testing.T) {
	up := &upstream{outlines: []string{"o1", "o2", "o3"}}
	srv := serve(t, up, proxyserver.Config{VendorKey: "sk"})

	resp := post(t, srv.URL+proxy.ConvertPath, `{"imageUrl":"https://src","style":"artistic"}`, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body proxy.ConvertResponse
	require.NoError(t, decodeBody(resp, &body))
	assert.Equal(t, []proxy.Image{
		{ID: "1", URL: "o1", Alt: "artistic outline 1"},
		{ID: "2", URL: "o2", Alt: "artistic outline 2"},
		{ID: "3", URL: "o3", Alt: "artistic outline 3"},
	}, body.Outlines)
	assert.Equal(t, imagegen.StyleArtistic, up.style)
}

func TestConvert_FallsBackToSourceImage(t *testing.T) {
	for name, p := range map[string]imagegen.Provider{
		"conversion error": &upstream{convErr: imagegen.Errorf(imagegen.KindProvider, "boom")},
		"no outlines":      &upstream{},
		"no converter":     generateOnly{},
	} {
		t.Run(name, func(t *testing.T) {
			srv := serve(t, p, proxyserver.Config{VendorKey: "sk"})

			resp := post(t, srv.URL+proxy.ConvertPath, `{"imageUrl":"https://src"}`, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var body proxy.ConvertResponse
			require.NoError(t, decodeBody(resp, &body))
			require.Len(t, body.Outlines, 3)
			for i, o := range body.Outlines {
				assert.Equal(t, "https://src", o.URL)
				assert.Equal(t, "simple outline "+string(rune('1'+i)), o.Alt)
			}
		})
	}
}

func TestConvert_Validation(t *testing.T) {
	srv := serve(t, &upstream{}, proxyserver.Config{VendorKey: "sk"})

	resp := post(t, srv.URL+proxy.ConvertPath, `{"style":"simple"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, srv.URL+proxy.ConvertPath, `{"imageUrl":"https://src","style":"cubist"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServe_StopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- proxyserver.New(&upstream{}, proxyserver.Config{}, nil).Serve(ctx, l)
	}()

	resp, err := http.Get("http://" + l.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
