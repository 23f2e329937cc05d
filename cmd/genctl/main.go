package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"contentgen/internal/content"
	"contentgen/internal/domain"
	"contentgen/internal/domain/jsoncfg"
	"contentgen/internal/generate"
	"contentgen/internal/identity"
	"contentgen/internal/infra"
	"contentgen/internal/infra/credentials"
	"contentgen/internal/ledger"
	"contentgen/internal/payment"
	"contentgen/internal/quota"
	"contentgen/internal/storage"
)

const usage = `usage: genctl <command> [flags]

commands:
  generate   generate content for a prompt or a structured brief
  quota      show the anonymous free-generation allowance
  login      save a bearer token and user id for later runs
  logout     clear saved credentials
  pay        initiate an M-Pesa subscription payment and wait for confirmation
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "generate":
		runGenerate(os.Args[2:])
	case "quota":
		runQuota(os.Args[2:])
	case "login":
		runLogin(os.Args[2:])
	case "logout":
		runLogout(os.Args[2:])
	case "pay":
		runPay(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

type cliEnv struct {
	session *identity.Session
	tracker *quota.Tracker
	orch    *content.Orchestrator
	store   *quota.SQLiteStore
}

// newCLIEnv wires the generation pipeline for one invocation. The anonymous
// counter lives in a local SQLite file so it survives across runs; signed-in
// usage is recorded in memory only, the durable record being the server's
// concern.
func newCLIEnv(token, userID string) (*cliEnv, error) {
	logger := infra.NewLogger("cli").With().Str("cmd", "genctl").Logger()

	baseURL := strings.TrimSpace(os.Getenv("UPSTREAM_API_URL"))
	if baseURL == "" {
		baseURL = infra.DefaultUpstreamBaseURL
	}
	dbPath := strings.TrimSpace(os.Getenv("QUOTA_DB_PATH"))
	if dbPath == "" {
		dbPath = genctlDir("quota.db")
	}

	store, err := quota.OpenSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open quota store: %w", err)
	}

	client, err := generate.NewClient(generate.Options{BaseURL: baseURL})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	tracker := quota.NewTracker(store, logger)
	ldg := ledger.New(ledger.NewMemoryStore(), tracker, logger)
	orch := content.New(client, tracker, ldg, nil, logger)

	session := identity.NewSession()
	orch.Bind(session)
	if token != "" {
		if userID == "" {
			_ = store.Close()
			return nil, errors.New("-user is required when -token is set")
		}
		session.SignIn(identity.Principal{ID: userID}, identity.StaticTokenSource(token))
	}

	return &cliEnv{session: session, tracker: tracker, orch: orch, store: store}, nil
}

func (e *cliEnv) close() {
	_ = e.store.Close()
}

func runGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var (
		promptFlag   string
		topicFlag    string
		typeFlag     string
		toneFlag     string
		audienceFlag string
		keywordsFlag string
		tokenFlag    string
		userFlag     string
		saveFlag     bool
		timeoutFlag  time.Duration
	)
	fs.StringVar(&promptFlag, "prompt", "", "raw prompt to send as-is (overrides the brief flags)")
	fs.StringVar(&topicFlag, "topic", "", "what to write about")
	fs.StringVar(&typeFlag, "type", jsoncfg.DefaultContentType, "content type (blog, social, email, seo, product)")
	fs.StringVar(&toneFlag, "tone", "", "tone of voice")
	fs.StringVar(&audienceFlag, "audience", "", "target audience")
	fs.StringVar(&keywordsFlag, "keywords", "", "comma-separated keywords to include")
	fs.StringVar(&tokenFlag, "token", "", "bearer token for an authenticated request")
	fs.StringVar(&userFlag, "user", "", "user id the token belongs to")
	fs.BoolVar(&saveFlag, "save", false, "also save the content under the local content directory")
	fs.DurationVar(&timeoutFlag, "timeout", 90*time.Second, "request timeout")
	_ = fs.Parse(args)

	prompt := strings.TrimSpace(promptFlag)
	contentType := typeFlag
	if prompt == "" {
		brief := &jsoncfg.BriefJSON{
			Topic:       topicFlag,
			ContentType: typeFlag,
			Tone:        toneFlag,
			Audience:    audienceFlag,
		}
		if keywordsFlag != "" {
			brief.Keywords = strings.Split(keywordsFlag, ",")
		}
		brief.Normalize()
		if err := brief.Validate(); err != nil {
			exitWithError(fmt.Errorf("%w (or pass -prompt)", err))
		}
		prompt = brief.BuildPrompt()
		contentType = brief.ContentType
	}

	tokenFlag, userFlag = withSavedCredentials(tokenFlag, userFlag)
	env, err := newCLIEnv(tokenFlag, userFlag)
	if err != nil {
		exitWithError(err)
	}
	defer env.close()

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	res, err := env.orch.Generate(ctx, env.session.Caller(), domain.GenerationRequest{
		Prompt:      prompt,
		ContentType: contentType,
	})
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			exitWithError(fmt.Errorf("you've used all %d free generations; run genctl login to continue", quota.MaxAnonymous))
		}
		exitWithError(err)
	}

	fmt.Println(res.Text)
	if saveFlag {
		path, err := saveContent(res)
		if err != nil {
			exitWithError(err)
		}
		fmt.Fprintf(os.Stderr, "saved to %s\n", path)
	}
	state := env.orch.State()
	fmt.Fprintf(os.Stderr, "\n%d words", res.WordCount)
	if !env.session.Caller().Authenticated() {
		fmt.Fprintf(os.Stderr, ", %d free generations left", state.Remaining)
	}
	fmt.Fprintln(os.Stderr)
}

// saveContent writes the clipboard form of the result into the local content
// directory and returns the on-disk path.
func saveContent(res *domain.GenerationResult) (string, error) {
	store, err := storage.NewFileStore(genctlDir("content"))
	if err != nil {
		return "", err
	}
	key := time.Now().UTC().Format("20060102-150405") + ".md"
	return store.Write(context.Background(), key, []byte(res.ClipboardText()))
}

func runLogin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	var (
		tokenFlag string
		userFlag  string
	)
	fs.StringVar(&tokenFlag, "token", "", "bearer token (required)")
	fs.StringVar(&userFlag, "user", "", "user id the token belongs to (required)")
	_ = fs.Parse(args)

	store, err := credentials.NewStore(credentialsPath())
	if err != nil {
		exitWithError(err)
	}
	if err := store.Save(credentials.Credentials{UserID: userFlag, Token: tokenFlag}); err != nil {
		exitWithError(err)
	}
	fmt.Printf("signed in as %s\n", userFlag)
}

func runLogout(args []string) {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	_ = fs.Parse(args)

	store, err := credentials.NewStore(credentialsPath())
	if err != nil {
		exitWithError(err)
	}
	if err := store.Clear(); err != nil {
		exitWithError(err)
	}
	fmt.Println("signed out")
}

// withSavedCredentials falls back to the stored identity when the flags leave
// token or user unset.
func withSavedCredentials(token, user string) (string, string) {
	if token != "" && user != "" {
		return token, user
	}
	store, err := credentials.NewStore(credentialsPath())
	if err != nil {
		return token, user
	}
	creds, ok, err := store.Load()
	if err != nil || !ok {
		return token, user
	}
	if token == "" {
		token = creds.Token
	}
	if user == "" {
		user = creds.UserID
	}
	return token, user
}

func runQuota(args []string) {
	fs := flag.NewFlagSet("quota", flag.ExitOnError)
	_ = fs.Parse(args)

	env, err := newCLIEnv("", "")
	if err != nil {
		exitWithError(err)
	}
	defer env.close()

	remaining := env.tracker.Remaining(context.Background())
	fmt.Printf("%d of %d free generations remaining\n", remaining, quota.MaxAnonymous)
}

func runPay(args []string) {
	fs := flag.NewFlagSet("pay", flag.ExitOnError)
	var (
		phoneFlag string
		tokenFlag string
		userFlag  string
	)
	fs.StringVar(&phoneFlag, "phone", "", "M-Pesa phone number (format 254XXXXXXXXX)")
	fs.StringVar(&tokenFlag, "token", "", "bearer token")
	fs.StringVar(&userFlag, "user", "", "user id the token belongs to")
	_ = fs.Parse(args)

	tokenFlag, userFlag = withSavedCredentials(tokenFlag, userFlag)
	if tokenFlag == "" || userFlag == "" {
		exitWithError(errors.New("sign in first: genctl login -token ... -user ..."))
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "genctl").Logger()
	baseURL := strings.TrimSpace(os.Getenv("UPSTREAM_API_URL"))
	if baseURL == "" {
		baseURL = infra.DefaultUpstreamBaseURL
	}

	tracker := quota.NewTracker(nopQuotaStore{}, logger)
	ldg := ledger.New(ledger.NewMemoryStore(), tracker, logger)

	initiator, err := payment.NewInitiator(baseURL, nil, logger)
	if err != nil {
		exitWithError(err)
	}
	poller, err := payment.NewPoller(payment.PollerOptions{BaseURL: baseURL}, ldg, logger)
	if err != nil {
		exitWithError(err)
	}
	manager := payment.NewManager(initiator, poller, logger)

	caller := identity.Caller{
		Principal: &identity.Principal{ID: userFlag},
		Tokens:    identity.StaticTokenSource(tokenFlag),
	}

	session, err := manager.Begin(context.Background(), caller, phoneFlag)
	if err != nil {
		exitWithError(err)
	}

	fmt.Printf("payment initiated, checkout request %s\n", session.CorrelationID())
	fmt.Println("check your phone to authorize the charge; waiting for confirmation...")

	<-session.Done()

	switch session.Status() {
	case domain.PaymentCompleted:
		fmt.Println("payment confirmed, subscription active")
	case domain.PaymentTimedOut:
		exitWithError(errors.New("payment confirmation timed out; if you were charged, contact support"))
	default:
		err := session.Err()
		if err == nil {
			err = domain.ErrPaymentFailed
		}
		exitWithError(err)
	}
}

// nopQuotaStore satisfies the tracker for flows that never touch the
// anonymous counter.
type nopQuotaStore struct{}

func (nopQuotaStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (nopQuotaStore) Set(context.Context, string, string) error { return nil }

func (nopQuotaStore) Delete(context.Context, string) error { return nil }

// genctlDir resolves a path under the CLI's state directory, falling back to
// the working directory when the home directory is unknown.
func genctlDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.genctl/" + name
	}
	return filepath.Join(home, ".genctl", name)
}

func credentialsPath() string {
	return genctlDir("credentials.json")
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
