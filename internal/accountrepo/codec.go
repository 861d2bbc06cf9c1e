package accountrepo

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-petr/pet-ledger/internal/domain"
)

const (
	numFields  = 6
	colID      = 0
	colOwner   = 1
	colBalance = 2
	colPIN     = 3
	colEmail   = 4
	colHistory = 5

	historySep    = '|'
	historyEscape = '\\'
)

var (
	errFieldCount = errors.New("wrong number of fields")
	errBadEscape  = errors.New("bad escape sequence in history")
	errEmptyEntry = errors.New("empty history entry")
	errDuplicate  = errors.New("duplicate account id")
)

// MarshalAccount converts an Account to a record row.
func MarshalAccount(a domain.Account) ([]string, error) {
	history, err := encodeHistory(a.History)
	if err != nil {
		return nil, fmt.Errorf("account %d: %w", a.ID, err)
	}

	row := make([]string, numFields)
	row[colID] = strconv.FormatInt(int64(a.ID), 10)
	row[colOwner] = a.Owner
	row[colBalance] = strconv.FormatInt(a.Balance, 10)
	row[colPIN] = a.PIN
	row[colEmail] = a.Email
	row[colHistory] = history

	for i, field := range row {
		if strings.ContainsAny(field, "\r\n") {
			return nil, fmt.Errorf("account %d field %d: %w: line break", a.ID, i, domain.ErrUnencodable)
		}
	}

	return row, nil
}

// UnmarshalAccount converts a record row to an Account.
func UnmarshalAccount(record []string) (domain.Account, error) {
	if len(record) != numFields {
		return domain.Account{}, fmt.Errorf("%w: expected %d, got %d", errFieldCount, numFields, len(record))
	}

	id, err := strconv.ParseInt(record[colID], 10, 32)
	if err != nil {
		return domain.Account{}, fmt.Errorf("parsing id %q: %w", record[colID], err)
	}

	balance, err := strconv.ParseInt(record[colBalance], 10, 64)
	if err != nil {
		return domain.Account{}, fmt.Errorf("parsing balance %q: %w", record[colBalance], err)
	}

	history, err := decodeHistory(record[colHistory])
	if err != nil {
		return domain.Account{}, err
	}

	a := domain.Account{
		ID:      int32(id),
		Owner:   record[colOwner],
		Balance: balance,
		PIN:     record[colPIN],
		Email:   record[colEmail],
		History: history,
	}

	if err := validateAccount(a); err != nil {
		return domain.Account{}, err
	}

	return a, nil
}

// validateAccount checks the invariants every persisted account must hold.
func validateAccount(a domain.Account) error {
	switch {
	case !domain.ValidAccountID(a.ID):
		return fmt.Errorf("id %d is not an 8-digit account number", a.ID)
	case a.Owner == "":
		return errors.New("empty owner")
	case a.Balance < 0:
		return fmt.Errorf("negative balance %d", a.Balance)
	case !domain.ValidPIN(a.PIN):
		return errors.New("pin is not 4 digits")
	}

	for _, entry := range a.History {
		if entry == "" {
			return errEmptyEntry
		}
	}

	return nil
}

// Encode writes accounts one per line in id,owner,balance,pin,email,history form.
func Encode(w io.Writer, accounts []domain.Account) error {
	cw := csv.NewWriter(w)

	for _, a := range accounts {
		row, err := MarshalAccount(a)
		if err != nil {
			return err
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing account %d: %w", a.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// Decode reads a ledger written by Encode. Lines that cannot be decoded are
// reported in LoadResult.Skipped and do not stop the load; only read errors
// from r are returned.
func Decode(r io.Reader) (domain.LoadResult, error) {
	var (
		res  domain.LoadResult
		seen = make(map[int32]bool)
		br   = bufio.NewReader(r)
	)

	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return res, fmt.Errorf("reading line %d: %w", lineNo, err)
		}

		if text := strings.TrimRight(line, "\r\n"); strings.TrimSpace(text) != "" {
			a, decodeErr := decodeLine(text)
			if decodeErr == nil && seen[a.ID] {
				decodeErr = fmt.Errorf("%w: %d", errDuplicate, a.ID)
			}

			if decodeErr != nil {
				res.Skipped = append(res.Skipped, &domain.CorruptRecordError{Line: lineNo, Err: decodeErr})
			} else {
				seen[a.ID] = true
				res.Accounts = append(res.Accounts, a)
			}
		}

		if errors.Is(err, io.EOF) {
			return res, nil
		}
	}
}

func decodeLine(line string) (domain.Account, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = numFields
	cr.LazyQuotes = true

	record, err := cr.Read()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) && errors.Is(pe.Err, csv.ErrFieldCount) {
			return domain.Account{}, fmt.Errorf("%w: expected %d, got %d", errFieldCount, numFields, len(record))
		}

		return domain.Account{}, err
	}

	return UnmarshalAccount(record)
}

func encodeHistory(entries []string) (string, error) {
	var sb strings.Builder

	for i, entry := range entries {
		if entry == "" {
			return "", fmt.Errorf("%w: %v", domain.ErrUnencodable, errEmptyEntry)
		}

		if i > 0 {
			sb.WriteByte(historySep)
		}

		for _, r := range entry {
			if r == historySep || r == historyEscape {
				sb.WriteByte(historyEscape)
			}
			sb.WriteRune(r)
		}
	}

	return sb.String(), nil
}

func decodeHistory(field string) ([]string, error) {
	if field == "" {
		return nil, nil
	}

	var (
		entries []string
		cur     strings.Builder
		escaped bool
	)

	for _, r := range field {
		switch {
		case escaped:
			if r != historySep && r != historyEscape {
				return nil, fmt.Errorf("%w: \\%c", errBadEscape, r)
			}
			cur.WriteRune(r)
			escaped = false
		case r == historyEscape:
			escaped = true
		case r == historySep:
			entries = append(entries, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}

	if escaped {
		return nil, fmt.Errorf("%w: trailing backslash", errBadEscape)
	}

	return append(entries, cur.String()), nil
}
