package assetrail

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"

	"github.com/elentis/reconcile/internal/models"
)

const (
	tronAddressLen    = 25
	tronAddressPrefix = 0x41
)

var evmChains = map[string]bool{
	"ETH":      true,
	"BSC":      true,
	"POLYGON":  true,
	"ARBITRUM": true,
	"OPTIMISM": true,
	"AVAX":     true,
	"BASE":     true,
}

// ValidateDestination rejects addresses that cannot be valid on chain.
func ValidateDestination(chain, address string) error {
	chain = strings.ToUpper(chain)
	switch {
	case chain == "TRX":
		return validateTron(address)
	case evmChains[chain]:
		if !common.IsHexAddress(address) {
			return fmt.Errorf("%w: not a hex address", models.ErrInvalidDestination)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported chain %s", models.ErrInvalidDestination, chain)
	}
}

// validateTron checks base58check encoding: 0x41 prefix, 20-byte body and a
// 4-byte double-sha256 checksum.
func validateTron(address string) error {
	decoded, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidDestination, err)
	}
	if len(decoded) != tronAddressLen || decoded[0] != tronAddressPrefix {
		return fmt.Errorf("%w: malformed tron address", models.ErrInvalidDestination)
	}

	payload, checksum := decoded[:21], decoded[21:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], checksum) {
		return fmt.Errorf("%w: bad checksum", models.ErrInvalidDestination)
	}
	return nil
}
