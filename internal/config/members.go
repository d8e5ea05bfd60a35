package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"ipo_applier/internal/broker"
	apperrors "ipo_applier/internal/errors"
	"ipo_applier/internal/models"
	"ipo_applier/internal/report"
)

// memberRecord is one entry of MEMBERS_INFO / MEMBERS_FILE. The key names
// follow the environment contract used by the existing deployments.
type memberRecord struct {
	Name           string `json:"name" yaml:"name"`
	Username       scalar `json:"USER_NAME" yaml:"USER_NAME"`
	Password       scalar `json:"PASSWORD" yaml:"PASSWORD"`
	DP             scalar `json:"DP" yaml:"DP"`
	CRN            scalar `json:"CRN" yaml:"CRN"`
	TransactionPIN scalar `json:"TRANSACTION_PIN" yaml:"TRANSACTION_PIN"`
	BankName       string `json:"BANK_NAME" yaml:"BANK_NAME"`
}

// scalar is a string field that also accepts a bare JSON number, as in "DP": 13700.
// yaml.v2 already decodes numbers into string fields.
type scalar string

func (s *scalar) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = scalar(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = scalar(n.String())
	return nil
}

// readMembers loads the member list from MEMBERS_FILE or MEMBERS_INFO.
// MEMBERS_INFO and *.json files are JSON; any other member file is YAML.
func readMembers(getenv func(string) string) ([]memberRecord, error) {
	var data []byte
	isJSON := true
	if path := strings.TrimSpace(getenv("MEMBERS_FILE")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrConfiguration, "reading MEMBERS_FILE", err)
		}
		data = b
		isJSON = strings.EqualFold(filepath.Ext(path), ".json")
	} else {
		data = []byte(getenv("MEMBERS_INFO"))
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil, apperrors.Configuration("no accounts configured: set MEMBERS_INFO or MEMBERS_FILE")
	}

	var records []memberRecord
	var err error
	if isJSON {
		err = json.Unmarshal(data, &records)
	} else {
		err = yaml.Unmarshal(data, &records)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfiguration, "parsing member list", err)
	}
	if len(records) == 0 {
		return nil, apperrors.Configuration("no accounts configured: member list is empty")
	}
	return records, nil
}

// buildAccounts validates member records and turns them into accounts,
// opening any "enc:" secrets on the way.
func buildAccounts(records []memberRecord, encryptionSecret string) ([]models.Account, error) {
	var enc *broker.Encryptor
	seen := make(map[string]bool, len(records))
	slugs := make(map[string]string, len(records))
	accounts := make([]models.Account, 0, len(records))

	for i, r := range records {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, apperrors.Configurationf("member %d: name is required", i+1)
		}
		if seen[name] {
			return nil, apperrors.Configurationf("member %q: duplicate name", name)
		}
		seen[name] = true
		// Report files are keyed by slug, so two names must not share one.
		if other, ok := slugs[report.Slug(name)]; ok {
			return nil, apperrors.Configurationf("members %q and %q would share a report file", other, name)
		}
		slugs[report.Slug(name)] = name

		username, password, dp := string(r.Username), string(r.Password), string(r.DP)
		crn, pin := string(r.CRN), string(r.TransactionPIN)
		required := map[string]string{
			"USER_NAME":       username,
			"PASSWORD":        password,
			"DP":              dp,
			"CRN":             crn,
			"TRANSACTION_PIN": pin,
		}
		for _, field := range []string{"USER_NAME", "PASSWORD", "DP", "CRN", "TRANSACTION_PIN"} {
			if strings.TrimSpace(required[field]) == "" {
				return nil, apperrors.Configurationf("member %q: %s is required", name, field)
			}
		}

		secrets := []*string{&password, &crn, &pin}
		for _, s := range secrets {
			if !broker.IsSealed(*s) {
				continue
			}
			if enc == nil {
				var err error
				if enc, err = broker.NewEncryptor(encryptionSecret); err != nil {
					return nil, apperrors.Wrap(apperrors.ErrConfiguration,
						"encrypted secrets need ENCRYPTION_SECRET", err)
				}
			}
			plain, err := enc.Open(*s, name)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.ErrConfiguration,
					"member "+name+": decrypting secret", err)
			}
			*s = plain
		}

		accounts = append(accounts, models.Account{
			Name: name,
			Credentials: models.Credentials{
				Username: strings.TrimSpace(username),
				Password: password,
				DP:       strings.TrimSpace(dp),
			},
			BankPreference: strings.TrimSpace(r.BankName),
			TransactionPIN: pin,
			CRN:            crn,
		})
	}

	return accounts, nil
}
