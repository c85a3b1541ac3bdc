package summarizer

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

type Provider string

const (
	ProviderGemini     Provider = "gemini"
	ProviderOpenAI     Provider = "openai"
	ProviderCompatible Provider = "compatible"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProviderGemini, nil
	case ProviderGemini, ProviderOpenAI, ProviderCompatible:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown provider %q", ErrModelInit, s)
	}
}

// NewGenerator builds the generator for provider. An empty key or an
// unknown provider fails with ErrModelInit.
func NewGenerator(ctx context.Context, provider Provider, apiKey, baseURL string, cfg ModelConfig) (Generator, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiGenerator(ctx, apiKey, baseURL, cfg)
	case ProviderOpenAI:
		return NewOpenAIGenerator(apiKey, cfg)
	case ProviderCompatible:
		return NewCompatibleGenerator(apiKey, baseURL, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrModelInit, provider)
	}
}

// MaxFactoryClients bounds the clients kept per API key. The least recently
// used one is dropped first.
const MaxFactoryClients = 64

type factoryEntry struct {
	id     string
	client *Client
}

// Factory hands out one Client per API key so per-chat keys keep their own cache.
type Factory struct {
	provider   Provider
	baseURL    string
	defaultKey string
	cfg        ModelConfig
	opts       []Option
	log        *slog.Logger

	mu      sync.Mutex
	clients map[string]*list.Element
	order   *list.List
}

func NewFactory(
	provider Provider,
	baseURL string,
	defaultKey string,
	cfg ModelConfig,
	log *slog.Logger,
	opts ...Option,
) *Factory {
	return &Factory{
		provider:   provider,
		baseURL:    baseURL,
		defaultKey: defaultKey,
		cfg:        cfg,
		opts:       opts,
		log:        log,
		clients:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Client returns the client for apiKey, falling back to the default key.
// A client that cannot be initialized still answers with ModelInitMessage.
func (f *Factory) Client(ctx context.Context, apiKey string) *Client {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = f.defaultKey
	}
	id := TextHash(key)

	f.mu.Lock()
	defer f.mu.Unlock()

	if elem, ok := f.clients[id]; ok {
		f.order.MoveToFront(elem)
		return elem.Value.(*factoryEntry).client
	}

	gen, err := NewGenerator(ctx, f.provider, key, f.baseURL, f.cfg)
	if err != nil {
		f.log.WarnContext(ctx, "Failed to initialize model",
			"error", err,
			"provider", f.provider)

		return NewClient(nil, f.log, f.opts...)
	}

	client := NewClient(gen, f.log, f.opts...)
	f.clients[id] = f.order.PushFront(&factoryEntry{id: id, client: client})

	for f.order.Len() > MaxFactoryClients {
		oldest := f.order.Back()
		f.order.Remove(oldest)
		delete(f.clients, oldest.Value.(*factoryEntry).id)
	}

	return client
}
