// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command crease is a terminal front-end for a live cricket-scoring backend.
// It owns no scoring rules: every ball is composed locally, resolved through
// the dismissal/transition gate, and recorded by the server, which answers
// with the authoritative score.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/crease-io/crease/scoring"
)

var (
	apiBase     = flag.String("api-base", "", "Base URL of the scoring backend (or CREASE_API_BASE)")
	matchID     = flag.String("match", "", "Live match ID to score (or CREASE_MATCH_ID)")
	dataDir     = flag.String("data-dir", "data", "Directory for the local session cache")
	envFile     = flag.String("env-file", "", "Optional .env file with CREASE_* variables")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat   = flag.String("log-format", "text", "Log format: text or json")
	metricsAddr = flag.String("metrics-addr", "", "Optional address to serve Prometheus metrics on")
	jwksURL     = flag.String("auth-jwks-url", "", "Optional JWKS endpoint to verify the bearer token against")
	noCache     = flag.Bool("no-cache", false, "Disable the local session cache")
)

func main() {
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	} else {
		// Best effort; a missing .env is fine.
		godotenv.Load()
	}

	log := newLogger(*logLevel, *logFormat)

	base := firstNonEmpty(*apiBase, os.Getenv("CREASE_API_BASE"))
	match := firstNonEmpty(*matchID, os.Getenv("CREASE_MATCH_ID"))
	token := os.Getenv("CREASE_TOKEN")
	if base == "" || match == "" || token == "" {
		log.Fatal("--api-base, --match and CREASE_TOKEN are required")
	}

	if dsn := os.Getenv("CREASE_SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			log.WithError(err).Warn("sentry init failed, continuing without it")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if *jwksURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := scoring.VerifyToken(ctx, *jwksURL, token)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("bearer token failed verification")
		}
	}

	var cache *scoring.SessionCache
	if !*noCache {
		cache = openCache(*dataDir, log)
	}

	var metrics *scoring.Metrics
	if *metricsAddr != "" {
		metrics = scoring.NewMetrics()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.WithError(err).Error("metrics listener failed")
			}
		}()
	}

	session, err := scoring.NewSession(scoring.Config{
		BaseURL: base,
		Token:   token,
		MatchID: match,
		Cache:   cache,
		Metrics: metrics,
		Logger:  log,
		OnNotification: func(n scoring.Notification) {
			line := fmt.Sprintf("[%s] %s", n.Class, n.Message)
			if n.Retry != nil {
				line += "  (type 'retry' to try again)"
			}
			fmt.Println(line)
		},
		ReportCritical: func(err error) {
			sentry.CaptureException(err)
		},
	})
	if err != nil {
		log.WithError(err).Fatal("could not create session")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := session.Start(ctx); err != nil {
		log.WithError(err).Fatal("could not start session")
	}
	defer session.Stop()

	printScore(session)

	// Wait for interrupt signal or console EOF.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		runConsole(ctx, session)
	}()

	select {
	case <-stop:
	case <-consoleDone:
	}

	log.Info("Shutting down...")
}

func newLogger(level, format string) *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// openCache initializes the encrypted session cache. With no passphrase the
// cache is stored unencrypted, mirroring how an empty master key behaves
// elsewhere in this storage layer.
func openCache(dataDir string, log *logrus.Logger) *scoring.SessionCache {
	var masterKey crypto.MasterKey
	if passphrase := os.Getenv("CREASE_MASTER_KEY"); passphrase != "" {
		keyFile := filepath.Join(dataDir, "master.key")
		os.MkdirAll(dataDir, 0o755)

		var err error
		masterKey, err = crypto.ReadMasterKey([]byte(passphrase), keyFile)
		if err != nil {
			if os.IsNotExist(err) {
				log.Info("Initializing new master encryption key...")
				masterKey, err = crypto.CreateMasterKey()
				if err != nil {
					log.WithError(err).Fatal("Failed to create master key")
				}
				if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
					log.WithError(err).Fatal("Failed to save master key")
				}
			} else {
				log.WithError(err).Fatal("Failed to read master key")
			}
		}
	} else {
		log.Warn("No CREASE_MASTER_KEY provided. The session cache will be stored UNENCRYPTED.")
	}

	store := storage.New(dataDir, masterKey)
	store.EnableCompression(true)
	return scoring.NewSessionCache(dataDir, store)
}

// runConsole is the keypad: one command per line, mapped onto the session.
func runConsole(ctx context.Context, s *scoring.Session) {
	fmt.Println(`Commands: 0-6 runs | type <legal|wide|no-ball|bye|leg-bye> | w (wicket) | wt <type>
  ball (submit) | confirm | runout <out> <fielder> [assist] | fielder <id>
  bowler <id> | bat <id> | innings | complete | undo | note <text> | score | cancel | quit`)

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		var err error
		switch {
		case cmd == "quit" || cmd == "exit":
			return
		case len(cmd) == 1 && cmd[0] >= '0' && cmd[0] <= '9':
			runs, _ := strconv.Atoi(cmd)
			err = s.QuickScore(runs)
		case cmd == "type" && len(args) == 1:
			err = s.SetBallType(args[0])
		case cmd == "w":
			err = s.ToggleWicket()
		case cmd == "wt" && len(args) == 1:
			err = s.SetWicketType(args[0])
		case cmd == "note":
			err = s.SetCommentary(strings.Join(args, " "))
		case cmd == "ball":
			var state scoring.ResolverState
			state, err = s.SubmitBall(ctx)
			if err == nil && state != scoring.StateIdle {
				fmt.Println("more input needed:", state)
			}
		case cmd == "confirm":
			err = s.ConfirmLastBall()
		case cmd == "cancel":
			err = s.CancelPending()
		case cmd == "runout" && len(args) >= 2:
			assist := ""
			if len(args) > 2 {
				assist = args[2]
			}
			err = s.ResolveRunOut(args[0], args[1], assist)
		case cmd == "fielder" && len(args) == 1:
			err = s.ResolveFielder(args[0])
		case cmd == "bowler" && len(args) == 1:
			err = s.ResolveNewBowler(ctx, args[0])
		case cmd == "bat" && len(args) == 1:
			err = s.ResolveNewBatsman(ctx, args[0])
		case cmd == "innings":
			err = s.StartSecondInnings(ctx)
		case cmd == "complete":
			err = s.CompleteMatch(ctx)
		case cmd == "undo":
			err = s.Undo(ctx)
		case cmd == "retry":
			err = retryLatest(s)
		case cmd == "score":
			printScore(s)
		default:
			fmt.Println("unknown command:", line)
		}
		if err != nil {
			fmt.Println("error:", err)
		}
	}
}

// retryLatest invokes the most recent retryable notification's bound replay.
func retryLatest(s *scoring.Session) error {
	notes := s.Notifications()
	for i := len(notes) - 1; i >= 0; i-- {
		if notes[i].Retry != nil {
			notes[i].Retry()
			s.DismissNotification(notes[i].ID)
			return nil
		}
	}
	return fmt.Errorf("nothing to retry")
}

func printScore(s *scoring.Session) {
	v, err := s.Snapshot()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("%d/%d in %s overs (innings %d)", v.Score.Runs, v.Score.Wickets, v.Score.Overs(), v.Score.Innings)
	if v.Target > 0 {
		fmt.Printf("  target %d", v.Target)
	}
	if v.Degraded {
		fmt.Printf("  [cached]")
	}
	fmt.Println()
	fmt.Printf("striker %s, non-striker %s, bowler %s\n",
		v.Players.Striker.PlayerName, v.Players.NonStriker.PlayerName, v.Players.Bowler.PlayerName)
	if v.ResultSummary != "" {
		fmt.Println(v.ResultSummary)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
