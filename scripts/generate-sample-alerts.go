//go:build ignore

// This script generates a sample alert table CSV for local development.
//
// Usage:
//
//	go run scripts/generate-sample-alerts.go                    # writes alerts.csv
//	go run scripts/generate-sample-alerts.go -out data.csv -n 500
//
// Point the server at the output with ALERTS_FILE=alerts.csv and
// ALERTS_KNOWN_DATABASES=MIDEVSTB,MIDEVSTBN,PRODDB01,PRODDB02,HRDB.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"
)

var databases = []string{"MIDEVSTB", "MIDEVSTBN", "PRODDB01", "PRODDB02", "HRDB"}

var templates = []struct {
	severity  string
	errorCode string
	message   string
}{
	{"CRITICAL", "ORA-16191", "standby redo transport failure to %s"},
	{"CRITICAL", "", "standby apply lag exceeds threshold on %s"},
	{"CRITICAL", "ORA-00600", "internal error code detected on %s"},
	{"WARNING", "ORA-01653", "tablespace USERS unable to extend on %s"},
	{"WARNING", "", "tablespace SYSAUX is 91 percent full on %s"},
	{"WARNING", "ORA-12541", "TNS listener not responding for %s"},
	{"WARNING", "ORA-04031", "unable to allocate shared memory on %s"},
	{"INFO", "", "RMAN backup completed for %s"},
	{"INFO", "", "archivelog switch on %s"},
}

func main() {
	out := flag.String("out", "alerts.csv", "output file path")
	n := flag.Int("n", 200, "number of alert rows to generate")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create %s: %v\n", *out, err)
		os.Exit(1)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"database", "severity", "time", "error_code", "message"}); err != nil {
		fmt.Fprintf(os.Stderr, "write header: %v\n", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	for i := 0; i < *n; i++ {
		db := databases[rng.Intn(len(databases))]
		tpl := templates[rng.Intn(len(templates))]
		ts := now.Add(-time.Duration(rng.Intn(7*24*60)) * time.Minute)
		record := []string{
			db,
			tpl.severity,
			ts.Format(time.RFC3339),
			tpl.errorCode,
			fmt.Sprintf(tpl.message, db),
		}
		if err := w.Write(record); err != nil {
			fmt.Fprintf(os.Stderr, "write row: %v\n", err)
			os.Exit(1)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "flush: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s rows to %s\n", strconv.Itoa(*n), *out)
}
