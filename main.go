package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"github.com/tanpawarit/Chative-Scheduling-Assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Scheduling-Assistant/agent/agents/responder"
	"github.com/tanpawarit/Chative-Scheduling-Assistant/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	llmx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/llm"
	statex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/state"
	configx "github.com/tanpawarit/Chative-Scheduling-Assistant/pkg/config"
	_ "github.com/tanpawarit/Chative-Scheduling-Assistant/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/Chative-Scheduling-Assistant/pkg/openrouter"
	qstashx "github.com/tanpawarit/Chative-Scheduling-Assistant/pkg/qstash"
)

type AppConfig struct {
	ConversationID string `split_words:"true" default:"local"`

	// StateBackend is one of memory, upstash, postgres, dynamodb.
	StateBackend string `split_words:"true" default:"memory"`
	// CatalogSource is one of file, postgres.
	CatalogSource   string `split_words:"true" default:"file"`
	CatalogFile     string `split_words:"true" default:"catalog.yaml"`
	CatalogSeedFile string `split_words:"true"`

	TTLMinutes     int           `envconfig:"TTL_MINUTES" default:"60"`
	DebounceWindow time.Duration `split_words:"true" default:"2500ms"`
	DedupWindow    time.Duration `split_words:"true" default:"10m"`

	PublishEvents bool `split_words:"true" default:"false"`
	CheckModel    bool `split_words:"true" default:"true"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("APP")

	var pg *bun.DB
	postgres := func() *bun.DB {
		if pg == nil {
			db, err := statex.OpenPostgres(*configx.MustNew[statex.PostgresConfig]("POSTGRES"))
			if err != nil {
				log.Fatal().Err(err).Msg("open postgres")
			}
			pg = db
		}
		return pg
	}
	defer func() {
		if pg != nil {
			_ = pg.Close()
		}
	}()

	docs, err := openDocumentStore(ctx, appCfg.StateBackend, postgres)
	if err != nil {
		log.Fatal().Err(err).Str("backend", appCfg.StateBackend).Msg("open state backend")
	}
	store, err := statex.NewStore(docs)
	if err != nil {
		log.Fatal().Err(err).Msg("create state store")
	}

	provider, err := openCatalog(ctx, appCfg, postgres)
	if err != nil {
		log.Fatal().Err(err).Str("source", appCfg.CatalogSource).Msg("open catalog")
	}

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if appCfg.CheckModel {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := openrouterx.CheckModel(checkCtx, llmCfg.OpenRouterForResponder()); err != nil {
			log.Warn().Err(err).Msg("responder model check failed")
		}
		cancel()
	}
	turnResponder, err := responder.New(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create responder")
	}

	var publisher contractx.EventPublisher
	if appCfg.PublishEvents {
		qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
		publisher, err = qstashx.NewPublisher(qstashx.MustNew(*qstashCfg), *qstashCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("create qstash publisher")
		}
	}

	orch, err := orchestrator.New(store, provider, turnResponder, publisher, orchestrator.Config{
		TTLMinutes:  appCfg.TTLMinutes,
		DedupWindow: appCfg.DedupWindow,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create orchestrator")
	}

	debouncer := orchestrator.NewDebouncer(ctx, appCfg.DebounceWindow, func(ctx context.Context, conversationID string, text string) {
		turn, err := orch.HandleMessage(ctx, conversationID, text)
		if err != nil {
			log.Error().Err(err).Str("conversation_id", conversationID).Msg("handle message")
			return
		}
		for _, reply := range turn.Replies {
			fmt.Printf("assistente> %s\n", reply)
		}
		if turn.Handover {
			fmt.Println("(conversa com a equipe; /liberar devolve ao assistente)")
		}
	})

	log.Info().Str("conversation_id", appCfg.ConversationID).
		Str("state_backend", appCfg.StateBackend).
		Str("catalog_source", appCfg.CatalogSource).
		Msg("assistant ready")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			debouncer.Close()
			return
		case line, ok := <-lines:
			if !ok {
				debouncer.Close()
				return
			}
			switch strings.TrimSpace(line) {
			case "":
			case "/liberar":
				orch.ReleaseHandover(ctx, appCfg.ConversationID)
				fmt.Println("(conversa devolvida ao assistente)")
			default:
				if err := debouncer.Push(appCfg.ConversationID, line); err != nil {
					log.Error().Err(err).Msg("buffer message")
				}
			}
		}
	}
}

func openDocumentStore(ctx context.Context, backend string, postgres func() *bun.DB) (statex.DocumentStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return statex.NewMemoryDocumentStore(), nil
	case "upstash":
		cfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		return statex.NewUpstashDocumentStore(*cfg)
	case "postgres":
		docs, err := statex.NewPostgresDocumentStore(postgres())
		if err != nil {
			return nil, err
		}
		if err := docs.Migrate(ctx); err != nil {
			return nil, err
		}
		return docs, nil
	case "dynamodb":
		cfg := configx.MustNew[statex.DynamoDBConfig]("DYNAMODB")
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return statex.NewDynamoDBDocumentStore(dynamodb.NewFromConfig(awsCfg), cfg.Table)
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}

func openCatalog(ctx context.Context, cfg *AppConfig, postgres func() *bun.DB) (contractx.CatalogProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.CatalogSource)) {
	case "", "file":
		return catalog.NewFileProvider(cfg.CatalogFile)
	case "postgres":
		provider, err := catalog.NewPostgresProvider(postgres())
		if err != nil {
			return nil, err
		}
		if err := provider.Migrate(ctx); err != nil {
			return nil, err
		}
		if cfg.CatalogSeedFile != "" {
			data, err := os.ReadFile(cfg.CatalogSeedFile)
			if err != nil {
				return nil, fmt.Errorf("read catalog seed: %w", err)
			}
			seed, err := catalog.ParseYAML(data)
			if err != nil {
				return nil, err
			}
			if err := provider.Seed(ctx, seed); err != nil {
				return nil, err
			}
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
	}
}
