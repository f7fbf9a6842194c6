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

package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Shape identifies which Swile response envelope produced a payload
type Shape string

const (
	// ShapeGraphQL is {"data":{"walletsOverview":[...]}} from the bff GraphQL endpoint
	ShapeGraphQL Shape = "graphql"
	// ShapeWallets is {"wallets":[...]} from the neobank wallets endpoint
	ShapeWallets Shape = "wallets"
)

// ParseShape converts a configuration value into a Shape
func ParseShape(value string) (Shape, error) {
	switch Shape(value) {
	case ShapeGraphQL, ShapeWallets:
		return Shape(value), nil
	default:
		return "", fmt.Errorf("unknown api variant %q (expected %q or %q)", value, ShapeGraphQL, ShapeWallets)
	}
}

// WalletBalance is the structured balance attached to every wallet
type WalletBalance struct {
	Text  string          `json:"text"`
	Value decimal.Decimal `json:"value"`
}

// WalletRecord is one balance-bearing entity (meal voucher, gift card, ...).
// The raw JSON object is retained so events and equality checks see every
// field the API returned, not only the typed ones.
type WalletRecord struct {
	Id       string        `json:"id"`
	Type     string        `json:"type"`
	Label    string        `json:"label"`
	Balance  WalletBalance `json:"balance"`
	GiftType *string       `json:"giftType"`
	Networks []string      `json:"networks"`

	raw json.RawMessage
}

type walletRecordFields WalletRecord

// UnmarshalJSON decodes the typed view and keeps a copy of the raw object
func (w *WalletRecord) UnmarshalJSON(data []byte) error {
	var fields walletRecordFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*w = WalletRecord(fields)
	w.raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)
	return nil
}

// MarshalJSON returns the record exactly as received when available
func (w WalletRecord) MarshalJSON() ([]byte, error) {
	if len(w.raw) > 0 {
		return w.raw, nil
	}
	return json.Marshal(walletRecordFields(w))
}

// Raw returns the JSON object for this record
func (w WalletRecord) Raw() json.RawMessage {
	data, err := w.MarshalJSON()
	if err != nil {
		return nil
	}
	return data
}

// Snapshot is the full set of wallet records observed in one poll cycle
type Snapshot struct {
	Shape   Shape
	Records []WalletRecord
	// Raw is the canonical serialization of the whole payload
	Raw json.RawMessage
}

type envelope struct {
	Data *struct {
		WalletsOverview *[]WalletRecord `json:"walletsOverview"`
	} `json:"data"`
	Wallets *[]WalletRecord `json:"wallets"`
}

// ParseSnapshot detects the envelope shape of body and decodes its records
func ParseSnapshot(body []byte) (*Snapshot, error) {
	canonical, err := Canonicalize(body)
	if err != nil {
		return nil, &ParseError{Source: "payload", Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ParseError{Source: "payload", Err: err}
	}

	switch {
	case env.Data != nil && env.Data.WalletsOverview != nil:
		return &Snapshot{Shape: ShapeGraphQL, Records: *env.Data.WalletsOverview, Raw: canonical}, nil
	case env.Wallets != nil:
		return &Snapshot{Shape: ShapeWallets, Records: *env.Wallets, Raw: canonical}, nil
	default:
		return nil, &ParseError{Source: "payload", Err: fmt.Errorf("no data.walletsOverview or wallets list in response")}
	}
}

// Canonicalize re-encodes a JSON document with sorted object keys and no
// insignificant whitespace. Numbers keep their original text.
func Canonicalize(body []byte) (json.RawMessage, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, fmt.Errorf("unexpected trailing data after JSON document")
	}
	return json.Marshal(value)
}
