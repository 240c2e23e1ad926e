// Package main runs a one-shot reserve attestation against chain balances
// and prints the report as JSON. Exits 1 when the reserve falls short.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"diamond-token/internal/attest"
	"diamond-token/internal/domain"
	"diamond-token/internal/ledger"
	"diamond-token/internal/pricing"
	"diamond-token/internal/solana"
	chstore "diamond-token/internal/storage/clickhouse"
)

func main() {
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, appends the attestation)")
	mintFlag := flag.String("mint", os.Getenv("DIAMOND_MINT"), "Token mint address")
	programFlag := flag.String("program-id", os.Getenv("DIAMOND_PROGRAM_ID"), "Program id the vault derives from")
	vaultFlag := flag.String("vault", "", "Vault address (default: derived from program id)")
	reserveFlag := flag.String("reserve-mint", pricing.MintUSDT.String(), "Reserve asset mint")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	logger := log.New(os.Stderr, "[attest] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *mintFlag == "" {
		logger.Fatal("--mint is required")
	}

	target := attest.Target{
		Mint:        mustPubkey(logger, "mint", *mintFlag),
		ReserveMint: mustPubkey(logger, "reserve-mint", *reserveFlag),
	}
	if *vaultFlag != "" {
		target.Vault = mustPubkey(logger, "vault", *vaultFlag)
	} else {
		programID := ledger.DefaultProgramID
		if *programFlag != "" {
			programID = mustPubkey(logger, "program-id", *programFlag)
		}
		vault, _, err := solana.FindProgramAddress([][]byte{[]byte(ledger.SeedVault)}, programID)
		if err != nil {
			logger.Fatalf("derive vault: %v", err)
		}
		target.Vault = vault
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	attestor := attest.New(solana.NewHTTPClient(*rpcEndpoint), attest.Options{Logger: logger})
	report, err := attestor.Attest(ctx, target)
	if report == nil {
		logger.Fatalf("attest: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(report); encErr != nil {
		logger.Fatalf("encode report: %v", encErr)
	}

	if errors.Is(err, domain.ErrInsufficientReserve) {
		os.Exit(1)
	}

	if *clickhouseDSN != "" {
		if err := appendRecord(ctx, *clickhouseDSN, report); err != nil {
			logger.Fatalf("append attestation: %v", err)
		}
		logger.Printf("Attestation %s appended to ClickHouse", report.ID)
	}
}

func appendRecord(ctx context.Context, dsn string, report *attest.Report) error {
	record, err := report.Record()
	if err != nil {
		return err
	}
	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	return chstore.NewEventStore(conn).Append(ctx, []*domain.Event{record})
}

func mustPubkey(logger *log.Logger, name, s string) domain.Pubkey {
	pk, err := domain.ParsePubkey(s)
	if err != nil {
		logger.Fatalf("--%s: %v", name, err)
	}
	return pk
}
