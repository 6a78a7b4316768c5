package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultStoreKeyPrefix = "chative:conversation:"
	replyKeySuffix        = ":reply"
	maxResponseSizeBytes  = 2 << 20
)

// registerReplyScript is the dedup gate as one server-side script: the reply
// hash is only rewritten when the signature differs or the stored mark is
// older than the cutoff. Returns 1 when written, 0 when suppressed.
const registerReplyScript = `
local cur = redis.call('HMGET', KEYS[1], 'sig', 'at')
if cur[1] and cur[1] == ARGV[1] and cur[2] and tonumber(cur[2]) >= tonumber(ARGV[3]) then
  return 0
end
redis.call('HSET', KEYS[1], 'sig', ARGV[1], 'at', ARGV[2])
return 1
`

// UpstashOption customizes UpstashDocumentStore.
type UpstashOption func(*UpstashDocumentStore)

func WithKeyPrefix(prefix string) UpstashOption {
	return func(s *UpstashDocumentStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

// WithTTL sets a storage-level expiry on documents. Zero keeps them forever;
// the logical skill TTL lives inside the document.
func WithTTL(ttl time.Duration) UpstashOption {
	return func(s *UpstashDocumentStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(s *UpstashDocumentStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashDocumentStore persists conversation documents in Upstash Redis via REST.
type UpstashDocumentStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

var _ DocumentStore = (*UpstashDocumentStore)(nil)

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashRedisConfig struct {
	URL       string        `envconfig:"URL" split_words:"true" required:"true"`
	Token     string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	KeyPrefix string        `envconfig:"KEY_PREFIX" split_words:"true"`
}

func NewUpstashDocumentStore(cfg UpstashRedisConfig, opts ...UpstashOption) (*UpstashDocumentStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashDocumentStore{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		keyPrefix: defaultStoreKeyPrefix,
	}
	WithKeyPrefix(cfg.KeyPrefix)(store)

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return store, nil
}

func (s *UpstashDocumentStore) Get(ctx context.Context, id string) ([]byte, error) {
	key, err := s.docKey(id)
	if err != nil {
		return nil, err
	}

	resp, err := s.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrDocumentNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode conversation payload: %w", err)
	}
	return []byte(encoded), nil
}

func (s *UpstashDocumentStore) Set(ctx context.Context, id string, doc []byte) error {
	if doc == nil {
		return ErrNilDocument
	}
	key, err := s.docKey(id)
	if err != nil {
		return err
	}

	cmd := []any{"SET", key, string(doc)}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}

	_, err = s.exec(ctx, cmd)
	return err
}

func (s *UpstashDocumentStore) CompareAndSet(ctx context.Context, id string, cond ReplyCondition, mark ReplyMark) (int64, error) {
	key, err := s.docKey(id)
	if err != nil {
		return 0, err
	}

	resp, err := s.exec(ctx, []any{
		"EVAL", registerReplyScript, "1", key + replyKeySuffix,
		mark.Signature,
		strconv.FormatInt(mark.At.UnixMilli(), 10),
		strconv.FormatInt(cond.OlderThan.UnixMilli(), 10),
	})
	if err != nil {
		return 0, err
	}

	var changed int64
	if err := json.Unmarshal(bytes.TrimSpace(resp.Result), &changed); err != nil {
		return 0, fmt.Errorf("decode register reply result: %w", err)
	}
	return changed, nil
}

func (s *UpstashDocumentStore) docKey(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", ErrInvalidConversation
	}
	return strings.TrimSpace(s.keyPrefix) + id, nil
}

func (s *UpstashDocumentStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if s == nil {
		return nil, errors.New("nil store")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
