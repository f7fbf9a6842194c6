/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package diff

import (
	"bytes"
	"encoding/json"
	"fmt"

	"swile-balance-agent/internal/models"

	"github.com/shopspring/decimal"
)

// Mode selects between per-record change events and one event per cycle
type Mode string

const (
	ModeChangesOnly Mode = "changes_only"
	ModeAlways      Mode = "always"
)

// ModeFor maps the changes_only option onto a Mode
func ModeFor(changesOnly bool) Mode {
	if changesOnly {
		return ModeChangesOnly
	}
	return ModeAlways
}

// Policy decides when two wallet records count as the same observation
type Policy string

const (
	// PolicyFullRecord requires every field, nested ones included, to match
	PolicyFullRecord Policy = "full_record"
	// PolicyIdentityBalance only looks at the wallet id and its balance
	PolicyIdentityBalance Policy = "identity_balance"
)

func ParsePolicy(value string) (Policy, error) {
	switch Policy(value) {
	case PolicyFullRecord, PolicyIdentityBalance:
		return Policy(value), nil
	default:
		return "", fmt.Errorf("unknown compare policy %q", value)
	}
}

// PolicyForShape returns the policy each API variant has always used: the
// GraphQL overview compares whole records, the wallets list only id+balance.
func PolicyForShape(shape models.Shape) Policy {
	if shape == models.ShapeWallets {
		return PolicyIdentityBalance
	}
	return PolicyFullRecord
}

// Equal compares two records under the policy
func (p Policy) Equal(a, b models.WalletRecord) bool {
	if p == PolicyIdentityBalance {
		return identityBalanceEqual(a, b)
	}
	av, err := decodeRecord(a)
	if err != nil {
		return false
	}
	bv, err := decodeRecord(b)
	if err != nil {
		return false
	}
	return valuesEqual(av, bv)
}

func identityBalanceEqual(a, b models.WalletRecord) bool {
	return a.Id == b.Id &&
		a.Balance.Text == b.Balance.Text &&
		a.Balance.Value.Equal(b.Balance.Value)
}

func decodeRecord(record models.WalletRecord) (interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(record.Raw()))
	decoder.UseNumber()

	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// valuesEqual is structural equality over decoded JSON where numbers compare
// by value, so 540 and 540.0 are the same balance.
func valuesEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for key, value := range av {
			other, ok := bv[key]
			if !ok || !valuesEqual(value, other) {
				return false
			}
		}
		return true
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case json.Number:
		bv, ok := b.(json.Number)
		if !ok {
			return false
		}
		return numbersEqual(av, bv)
	default:
		return a == b
	}
}

func numbersEqual(a, b json.Number) bool {
	if a == b {
		return true
	}
	ad, err := decimal.NewFromString(a.String())
	if err != nil {
		return false
	}
	bd, err := decimal.NewFromString(b.String())
	if err != nil {
		return false
	}
	return ad.Equal(bd)
}
