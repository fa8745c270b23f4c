// cmd/langsec/main.go
//
// A thin CLI wrapper around the engine: load a schema file, validate one
// query, and print the resulting diagnostic (or null, on success) as
// JSON. It exists to exercise the public API end to end, not as a
// production guard façade — that's the outer collaborator this engine is
// built to sit behind.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/askdba/langsec"
	"github.com/askdba/langsec/audit"
	"github.com/askdba/langsec/config"
)

func main() {
	schemaPath := flag.String("schema", "", "path to a YAML or JSON security schema file (required)")
	collectAll := flag.Bool("collect-all", false, "report every rule violation instead of stopping at the first")
	flag.Parse()

	if *schemaPath == "" {
		log.Fatal("langsec: -schema is required")
	}

	s, err := config.LoadSchemaFile(*schemaPath)
	if err != nil {
		log.Fatalf("langsec: %v", err)
	}

	facadeCfg := config.LoadFacadeConfig()

	engine := langsec.New(s)
	if *collectAll {
		engine = engine.WithMode(langsec.CollectAll)
	}
	if facadeCfg.LogQueries && facadeCfg.LogPath != "" {
		logger, err := audit.NewJSONFileLogger(facadeCfg.LogPath)
		if err != nil {
			log.Fatalf("langsec: %v", err)
		}
		defer logger.Close()
		engine = engine.WithAuditLogger(logger)
	}

	query, err := readQuery(flag.Args())
	if err != nil {
		log.Fatalf("langsec: %v", err)
	}

	validationErr := engine.Validate(query)
	if validationErr == nil {
		fmt.Println("null")
		return
	}

	d := langsec.AsDiagnostic(validationErr)
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		log.Fatalf("langsec: %v", err)
	}
	fmt.Println(string(out))

	if facadeCfg.RaiseOnViolation {
		os.Exit(1)
	}
}

// readQuery takes the query from the positional arguments, joined with
// single spaces, or from stdin if none were given.
func readQuery(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read query from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
