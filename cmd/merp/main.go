package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/merpai/merp/internal/backend"
	"github.com/merpai/merp/internal/classifier"
	"github.com/merpai/merp/internal/engine"
	"github.com/merpai/merp/internal/models"
	"github.com/merpai/merp/internal/search"
	"github.com/merpai/merp/internal/storage"
	"github.com/merpai/merp/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", *configPath))
	}

	// Initialize storage
	var store storage.Store
	switch cfg.Storage.Backend {
	case "postgres":
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStore(cfg.Storage.Database, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	default:
		logger.Info("Using file storage")
		store, err = storage.NewFileStore(cfg.Storage.DataDir, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize backend connector
	connector, err := backend.New(cfg.Backend, logger)
	if err != nil {
		logger.Fatal("Failed to create backend connector", zap.Error(err))
	}

	// Initialize search collaborator
	var searcher search.Searcher = search.Noop{}
	if cfg.Search.Enabled {
		searcher = search.NewDuckDuckGo(logger)
	}

	eng := engine.New(connector, classifier.NewHeuristicClassifier(), searcher,
		store, cfg.Search.MaxResults, logger)
	eng.LoadUserData()

	eng.RegisterStatusCallback(func(event backend.Event, data map[string]any) {
		switch event {
		case backend.EventConnected:
			fmt.Printf("[connected to %v]\n", data["url"])
		case backend.EventDisconnected:
			fmt.Printf("[disconnected: %v]\n", data["error"])
		}
	})
	eng.RegisterModelCallback(func(event backend.Event, data map[string]any) {
		fmt.Printf("[model switched to %v]\n", data["model"])
	})

	eng.CheckConnection()
	if err := eng.StartHealthMonitor(cfg.Backend.HealthInterval); err != nil {
		logger.Fatal("Failed to start health monitor", zap.Error(err))
	}
	defer eng.StopHealthMonitor()

	runREPL(eng)

	eng.SaveUserData()
}

func runREPL(eng *engine.Engine) {
	fmt.Println("merp — type a message, or /help for commands")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := handleCommand(eng, input); quit {
				return
			}
			continue
		}

		eng.AddToHistory(models.RoleUser, input)
		response := eng.ProcessInput(input)
		eng.AddToHistory(models.RoleAssistant, response)
		fmt.Println(response)
	}
}

func handleCommand(eng *engine.Engine, input string) bool {
	parts := strings.SplitN(input, " ", 2)
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Println("/models /switch <name> /save /list /load <n> /rename <n> <title> /delete <n> /new /summary /quit")
	case "/models":
		names := eng.GetAvailableModels()
		if len(names) == 0 {
			fmt.Println("no models available")
		}
		for _, name := range names {
			fmt.Println(" ", name)
		}
	case "/switch":
		if arg == "" {
			fmt.Println("usage: /switch <model>")
			break
		}
		eng.SwitchModel(arg)
	case "/save":
		if location, ok := eng.SaveCurrentConversation(); ok {
			fmt.Println("saved:", location)
		} else {
			fmt.Println("nothing to save")
		}
	case "/new":
		if location, saved := eng.NewConversation(true); saved {
			fmt.Println("saved:", location)
		}
		fmt.Println("started a new conversation")
	case "/list":
		for i, summary := range eng.GetConversationList() {
			title := summary.Title
			if title == "" {
				title = summary.Timestamp.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%d. %s (%s, %d messages)\n", i+1, title, summary.UserName, summary.MessageCount)
		}
	case "/load":
		if summary, ok := pickSession(eng, arg); ok {
			if eng.LoadConversationByFile(summary.Location) {
				fmt.Println("loaded:", summary.Location)
			} else {
				fmt.Println("failed to load conversation")
			}
		}
	case "/rename":
		fields := strings.SplitN(arg, " ", 2)
		if len(fields) < 2 {
			fmt.Println("usage: /rename <n> <title>")
			break
		}
		if summary, ok := pickSession(eng, fields[0]); ok {
			if eng.RenameConversation(summary.Location, strings.TrimSpace(fields[1])) {
				fmt.Println("renamed")
			} else {
				fmt.Println("failed to rename conversation")
			}
		}
	case "/delete":
		if summary, ok := pickSession(eng, arg); ok {
			if eng.DeleteConversation(summary.Location) {
				fmt.Println("deleted")
			} else {
				fmt.Println("failed to delete conversation")
			}
		}
	case "/summary":
		s := eng.GetLearningSummary()
		fmt.Printf("name=%s model=%s connected=%t topics=%d emotions=%d\n",
			s.Name, s.Model, s.Connected, len(s.Topics), s.Emotions)
	default:
		fmt.Println("unknown command; /help for the list")
	}
	return false
}

func pickSession(eng *engine.Engine, arg string) (models.SessionSummary, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		fmt.Println("expected a conversation number from /list")
		return models.SessionSummary{}, false
	}
	list := eng.GetConversationList()
	if n > len(list) {
		fmt.Println("no such conversation")
		return models.SessionSummary{}, false
	}
	return list[n-1], true
}
