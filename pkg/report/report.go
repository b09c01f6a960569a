// Package report assembles the provisioning outcome into the credential
// report printed at the end of a run.
//
// Assembly is pure: it never touches the network and fails if any record
// is missing, so a partial report is never produced.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/identity"
	"github.com/chainsafe/ledger-provisioner/pkg/keys"
	"github.com/chainsafe/ledger-provisioner/pkg/token"
)

// Sender is the record of a group's asset-holding account.
type Sender struct {
	AccountID       string `json:"accountId" validate:"required"`
	PrivateKey      string `json:"privateKey" validate:"required"`
	EVMAddress      string `json:"evmAddress,omitempty"`
	FungibleTokenID string `json:"FungibleTokenId" validate:"required"`
	NftTokenID      string `json:"NftTokenId" validate:"required"`
}

// Receiver is the record of a group's receiving account.
type Receiver struct {
	AccountID  string `json:"accountId" validate:"required"`
	PrivateKey string `json:"privateKey" validate:"required"`
	EVMAddress string `json:"evmAddress,omitempty"`
}

// Group is the pair of accounts of one key scheme.
type Group struct {
	Sender   Sender   `json:"sender" validate:"required"`
	Receiver Receiver `json:"receiver" validate:"required"`
}

// Report is the full credential report.
type Report struct {
	ED25519        Group `json:"ed25519" validate:"required"`
	ECDSAWithAlias Group `json:"ecdsaWithAlias" validate:"required"`
}

// GroupInput is the provisioning outcome of one identity group.
type GroupInput struct {
	Sender   *identity.Account
	Receiver *identity.Account
	Assets   *token.Issued
}

// Input is everything the report is assembled from.
type Input struct {
	ED25519 GroupInput
	ECDSA   GroupInput
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Assemble builds the report. Any missing account, key or class id is a
// CategoryReportIncomplete error.
func Assemble(in Input) (*Report, error) {
	ed, err := assembleGroup("ed25519", keys.SchemeED25519, in.ED25519)
	if err != nil {
		return nil, err
	}
	ec, err := assembleGroup("ecdsaWithAlias", keys.SchemeECDSA, in.ECDSA)
	if err != nil {
		return nil, err
	}

	r := &Report{ED25519: *ed, ECDSAWithAlias: *ec}
	if err := getValidator().Struct(r); err != nil {
		return nil, apperrors.ReportIncompleteError(describe(err), "report is incomplete")
	}
	if r.ECDSAWithAlias.Sender.EVMAddress == "" || r.ECDSAWithAlias.Receiver.EVMAddress == "" {
		return nil, apperrors.ReportIncompleteError(errors.New("ecdsa records need an evm address"), "report is incomplete")
	}
	return r, nil
}

func assembleGroup(name string, scheme keys.Scheme, in GroupInput) (*Group, error) {
	switch {
	case in.Sender == nil:
		return nil, apperrors.ReportIncompleteError(nil, name+": sender account is missing")
	case in.Receiver == nil:
		return nil, apperrors.ReportIncompleteError(nil, name+": receiver account is missing")
	case in.Assets == nil:
		return nil, apperrors.ReportIncompleteError(nil, name+": issued assets are missing")
	}

	senderKey, senderEVM, err := credentials(in.Sender, scheme)
	if err != nil {
		return nil, apperrors.ReportIncompleteError(err, name+": sender")
	}
	receiverKey, receiverEVM, err := credentials(in.Receiver, scheme)
	if err != nil {
		return nil, apperrors.ReportIncompleteError(err, name+": receiver")
	}

	return &Group{
		Sender: Sender{
			AccountID:       in.Sender.ID,
			PrivateKey:      senderKey,
			EVMAddress:      senderEVM,
			FungibleTokenID: in.Assets.Fungible.ID,
			NftTokenID:      in.Assets.NonFungible.ID,
		},
		Receiver: Receiver{
			AccountID:  in.Receiver.ID,
			PrivateKey: receiverKey,
			EVMAddress: receiverEVM,
		},
	}, nil
}

func credentials(acc *identity.Account, scheme keys.Scheme) (privateKey, evmAddress string, err error) {
	if acc.Key == nil {
		return "", "", errors.New("private key is missing")
	}
	if acc.Key.Scheme() != scheme {
		return "", "", fmt.Errorf("expected a %s key, got %s", scheme, acc.Key.Scheme())
	}
	if scheme == keys.SchemeECDSA {
		evmAddress, err = acc.Key.EVMAddress()
		if err != nil {
			return "", "", err
		}
	}
	return acc.Key.PrivateKeyString(), evmAddress, nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace())
	}
	return fmt.Errorf("missing fields: %s", strings.Join(fields, ", "))
}

// Write emits the report as indented JSON.
func (r *Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
