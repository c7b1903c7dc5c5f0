package service

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jask/budgetforecast/internal/database"
	"github.com/jask/budgetforecast/internal/database/repository"
	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

// nearDuplicateDays and nearDuplicateDistance bound the near-duplicate check:
// same amount, dates at most this far apart, and a description edit
// distance below this share of the longer description.
const (
	nearDuplicateDays     = 3
	nearDuplicateDistance = 0.4
)

var fingerprintNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("budgetforecast:operation"))

// ImportService records bank operations and links them to targets.
type ImportService struct {
	DB          *sql.DB
	Links       *LinkService
	AccountName string
	Currency    string
	Logger      *slog.Logger
}

// ImportOptions optionally moves the account balance along with the import.
type ImportOptions struct {
	Balance     *decimal.Decimal
	BalanceDate timerange.Date
}

// NearDuplicate pairs a new operation with an existing one that looks like
// the same transaction. It is reported, never merged.
type NearDuplicate struct {
	Imported   model.Operation
	Existing   model.Operation
	Similarity float64
}

type IngestResult struct {
	BatchID        string
	Imported       int
	Skipped        int
	Linked         int
	Errors         []error
	NearDuplicates []NearDuplicate
}

// ImportOperations stores the operations that are not known yet and links
// the new ones against the active targets. Operations are identified by a
// fingerprint of account, date, amount, description and the position of
// identical rows in the batch, so a re-import is a no-op while two equal
// payments on one day both count.
func (s *ImportService) ImportOperations(ctx context.Context, ops []model.Operation, opts ImportOptions) (IngestResult, error) {
	res := IngestResult{BatchID: uuid.NewString()}
	logger := loggerOr(s.Logger).With("batch_id", res.BatchID)

	matchers, err := s.Links.activeMatchers(ctx)
	if err != nil {
		return res, err
	}

	var fresh []model.Operation
	err = database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		repo := repository.NewOperationRepo(tx)
		seen := make(map[string]int)
		for _, op := range ops {
			if op.Currency == "" {
				op.Currency = s.Currency
			}
			if op.Category == "" {
				op.Category = model.Uncategorized
			}
			base := fingerprintKey(s.AccountName, op)
			op.Fingerprint = fingerprint(base, seen[base])
			seen[base]++

			id, inserted, err := repo.InsertIfNew(ctx, op)
			if err != nil {
				return fmt.Errorf("insert operation %s %s: %w", op.Date, op.Description, err)
			}
			if !inserted {
				res.Skipped++
				continue
			}
			op.ID = id
			fresh = append(fresh, op)
		}

		linked, err := s.Links.linkOperations(ctx, tx, fresh, matchers, nil)
		if err != nil {
			return err
		}
		res.Linked = linked

		if opts.Balance != nil {
			date := opts.BalanceDate
			if date.IsZero() {
				date = latestDate(ops)
			}
			if date.IsZero() {
				return model.Invalid("update balance", "no balance date given and no operation to take it from")
			}
			return repository.NewAccountRepo(tx).Upsert(ctx, model.Account{
				Name: s.AccountName, Balance: *opts.Balance, Currency: s.Currency, BalanceDate: date,
			})
		}
		return nil
	})
	if err != nil {
		return IngestResult{BatchID: res.BatchID}, err
	}
	res.Imported = len(fresh)

	res.NearDuplicates, err = s.nearDuplicates(ctx, fresh)
	if err != nil {
		return res, err
	}
	logger.Info("operations imported",
		"imported", res.Imported, "skipped", res.Skipped, "links_created", res.Linked,
		"near_duplicates", len(res.NearDuplicates))
	return res, nil
}

// ImportCSV ingests rows of date,amount,description[,category]. A header
// row is skipped. Bad rows are collected in the result and the rest is
// imported.
func (s *ImportService) ImportCSV(ctx context.Context, r io.Reader, opts ImportOptions) (IngestResult, error) {
	csvr := csv.NewReader(bufio.NewReader(r))
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1

	var (
		ops     []model.Operation
		rowErrs []error
	)
	line := 0
	for {
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "date") {
			continue
		}
		if len(rec) < 3 {
			rowErrs = append(rowErrs, fmt.Errorf("line %d: expected 3 columns (date, amount, description)", line))
			continue
		}
		date, err := timerange.ParseDate(rec[0])
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("line %d date: %w", line, err))
			continue
		}
		amount, err := parseAmount(rec[1])
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("line %d amount: %w", line, err))
			continue
		}
		op := model.Operation{Date: date, Amount: amount, Description: strings.TrimSpace(rec[2])}
		if len(rec) > 3 {
			op.Category = model.Category(strings.TrimSpace(rec[3]))
		}
		ops = append(ops, op)
	}

	res, err := s.ImportOperations(ctx, ops, opts)
	res.Errors = append(rowErrs, res.Errors...)
	return res, err
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return decimal.NewFromString(strings.TrimPrefix(s, "+"))
}

func fingerprintKey(account string, op model.Operation) string {
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(account)),
		op.Date.String(),
		op.Amount.StringFixed(2),
		strings.ToLower(strings.TrimSpace(op.Description)),
	}, "|")
}

func fingerprint(key string, occurrence int) string {
	return uuid.NewSHA1(fingerprintNamespace, []byte(fmt.Sprintf("%s|%d", key, occurrence))).String()
}

func latestDate(ops []model.Operation) timerange.Date {
	var d timerange.Date
	for _, op := range ops {
		d = timerange.Latest(d, op.Date)
	}
	return d
}

func (s *ImportService) nearDuplicates(ctx context.Context, fresh []model.Operation) ([]NearDuplicate, error) {
	if len(fresh) == 0 {
		return nil, nil
	}
	isFresh := make(map[int64]bool, len(fresh))
	for _, op := range fresh {
		isFresh[op.ID] = true
	}
	repo := repository.NewOperationRepo(s.DB)
	var out []NearDuplicate
	for _, op := range fresh {
		around, err := repo.List(ctx, repository.OperationFilter{
			From: op.Date.AddDays(-nearDuplicateDays),
			To:   op.Date.AddDays(nearDuplicateDays),
		})
		if err != nil {
			return nil, err
		}
		for _, other := range around {
			if isFresh[other.ID] || !other.Amount.Equal(op.Amount) {
				continue
			}
			if sim := similarity(op.Description, other.Description); sim > 1-nearDuplicateDistance {
				out = append(out, NearDuplicate{Imported: op, Existing: other, Similarity: sim})
			}
		}
	}
	return out, nil
}

func similarity(a, b string) float64 {
	a, b = strings.ToUpper(a), strings.ToUpper(b)
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
