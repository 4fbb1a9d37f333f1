package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/mpaiva/fiscalsim/internal/dataset"
	"github.com/mpaiva/fiscalsim/internal/domain"
	"github.com/mpaiva/fiscalsim/internal/engine"
	"github.com/mpaiva/fiscalsim/internal/gcsio"
	"github.com/mpaiva/fiscalsim/internal/logger"
	"github.com/mpaiva/fiscalsim/internal/scenarios"
	"github.com/mpaiva/fiscalsim/internal/taxparams"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runSimulation(log)
	case "status":
		runStatus(log)
	case "summary":
		runSummary(log)
	case "upload":
		runUpload(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("FiscalSim CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  run       Run a simulation against the local dataset and print the JSON result")
	fmt.Println("  status    Show dataset status (path, row count)")
	fmt.Println("  summary   Show dataset summary (date span, UFs, totals)")
	fmt.Println("  upload    Upload the local dataset CSV to a GCS bucket")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runSimulation(log zerolog.Logger) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dataDir := fs.String("data-dir", envOr("DATA_DIR", "./data"), "Directory holding the dataset CSV")
	paramsDB := fs.String("params-db", os.Getenv("TAX_PARAMS_DB"), "Tax-params bbolt file (default <data-dir>/tax_params.db)")
	scenariosFile := fs.String("scenarios", os.Getenv("SCENARIOS_FILE"), "Optional YAML file with scenario presets")
	preset := fs.String("cenario", scenarios.DefaultName, "Scenario preset name")
	anoReforma := fs.Int("ano-reforma", 0, "Reform year for registry rate lookup (0 = preset rates)")

	periodoInicio := fs.String("periodo-inicio", "", "Period start (YYYY-MM-DD)")
	periodoFim := fs.String("periodo-fim", "", "Period end (YYYY-MM-DD)")
	ufOrigem := fs.String("uf-origem", "", "Origin UF filter")
	ufDestino := fs.String("uf-destino", "", "Destination UF filter")
	ncm := fs.String("ncm", "", "NCM filter (exact)")
	produto := fs.String("produto", "", "Product filter (contains)")
	cfop := fs.String("cfop", "", "CFOP filter (exact)")
	movimento := fs.String("movimento", "", "ENTRADA|SAIDA filter")
	finalidade := fs.String("finalidade", "", "Finalidade filter")
	regrasJSON := fs.String("regras-json", "", "Classification rules (JSON list)")
	fs.Parse(os.Args[2:])

	filters := engine.Filters{
		PeriodoInicio: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodoFim:    time.Date(2100, 12, 31, 0, 0, 0, 0, time.UTC),
		UFOrigem:      *ufOrigem,
		UFDestino:     *ufDestino,
		NCM:           *ncm,
		Produto:       *produto,
		CFOP:          *cfop,
		Movimento:     *movimento,
		Finalidade:    *finalidade,
		RegrasJSON:    *regrasJSON,
	}
	if *periodoInicio != "" {
		dt, ok := domain.ParseDate(*periodoInicio)
		if !ok {
			log.Fatal().Str("periodo_inicio", *periodoInicio).Msg("Invalid period start")
		}
		filters.PeriodoInicio = dt
	}
	if *periodoFim != "" {
		dt, ok := domain.ParseDate(*periodoFim)
		if !ok {
			log.Fatal().Str("periodo_fim", *periodoFim).Msg("Invalid period end")
		}
		filters.PeriodoFim = dt
	}

	presets, err := scenarios.Load(*scenariosFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load scenario presets")
	}
	scenario, ok := presets.Get(*preset)
	if !ok {
		log.Fatal().Str("cenario", *preset).Msg("Unknown scenario preset")
	}

	if *anoReforma != 0 {
		if *paramsDB == "" {
			*paramsDB = filepath.Join(*dataDir, "tax_params.db")
		}
		registry, err := taxparams.Open(*paramsDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open tax-params registry")
		}
		defer registry.Close()

		if v, err := registry.GetRate(*anoReforma, taxparams.TipoCBSPadrao, *ufOrigem, scenario.AliquotaCBS); err == nil {
			scenario.AliquotaCBS = v
		}
		if v, err := registry.GetRate(*anoReforma, taxparams.TipoIBSPadrao, *ufOrigem, scenario.AliquotaIBS); err == nil {
			scenario.AliquotaIBS = v
		}
	}

	store, err := dataset.New(*dataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open dataset store")
	}

	rows, err := store.Query(dataset.Filters{
		PeriodoInicio: filters.PeriodoInicio,
		PeriodoFim:    filters.PeriodoFim,
		UFOrigem:      filters.UFOrigem,
		UFDestino:     filters.UFDestino,
		NCM:           filters.NCM,
		Produto:       filters.Produto,
		CFOP:          filters.CFOP,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query dataset")
	}

	result := engine.Run(rows, filters, scenario)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode result")
	}
	fmt.Println(string(out))
}

func runStatus(log zerolog.Logger) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	dataDir := fs.String("data-dir", envOr("DATA_DIR", "./data"), "Directory holding the dataset CSV")
	fs.Parse(os.Args[2:])

	store, err := dataset.New(*dataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open dataset store")
	}
	st, err := store.Status()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read dataset status")
	}
	printJSON(log, st)
}

func runSummary(log zerolog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	dataDir := fs.String("data-dir", envOr("DATA_DIR", "./data"), "Directory holding the dataset CSV")
	fs.Parse(os.Args[2:])

	store, err := dataset.New(*dataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open dataset store")
	}
	sum, err := store.Summary()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to summarize dataset")
	}
	printJSON(log, sum)
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to the CSV file (defaults to the local dataset)")
	dataDir := fs.String("data-dir", envOr("DATA_DIR", "./data"), "Directory holding the dataset CSV")
	fs.Parse(os.Args[2:])

	if *bucketName == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME [-file PATH]")
	}

	if *filePath == "" {
		store, err := dataset.New(*dataDir, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open dataset store")
		}
		*filePath = store.Path()
	}
	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading dataset to GCS")

	if err := gcsio.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}

func printJSON(log zerolog.Logger, v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode output")
	}
	fmt.Println(string(out))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
