package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name       string
	models     []string
	configured bool
}

func (s stubProvider) Name() string              { return s.name }
func (s stubProvider) AvailableModels() []string { return s.models }
func (s stubProvider) DefaultModel() string      { return s.models[0] }
func (s stubProvider) IsConfigured() bool        { return s.configured }
func (s stubProvider) Generate(ctx context.Context, req Request, model string) (*Response, error) {
	return &Response{Model: model}, nil
}

func TestRouter_Resolve(t *testing.T) {
	r := NewRouter("ollama")
	r.RegisterProvider(stubProvider{name: "ollama", models: []string{"llama3"}, configured: true})
	r.RegisterProvider(stubProvider{name: "openai", models: []string{"gpt-4o"}, configured: true})
	r.RegisterProvider(stubProvider{name: "anthropic", models: []string{"claude"}, configured: false})

	p, model, err := r.Resolve("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "gpt-4o", model)

	// Unconfigured providers are skipped
	p, model, err = r.Resolve("claude")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
	assert.Equal(t, "llama3", model)

	p, _, err = r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}

func TestRouter_ListProviders(t *testing.T) {
	r := NewRouter("b")
	r.RegisterProvider(stubProvider{name: "b", models: []string{"m"}, configured: true})
	r.RegisterProvider(stubProvider{name: "a", models: []string{"m"}, configured: true})
	r.RegisterProvider(stubProvider{name: "c", models: []string{"m"}, configured: false})

	assert.Equal(t, []string{"a", "b"}, r.ListProviders())

	infos := r.GetProvidersInfo()
	require.Len(t, infos, 3)
	assert.Equal(t, "a", infos[0].Name)
	assert.True(t, infos[1].Default)

	_, err := r.GetProvider("c")
	assert.Error(t, err)
	_, err = NewRouter("none").GetProvider("")
	assert.Error(t, err)
}
