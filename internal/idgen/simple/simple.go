package simple

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	ConfirmationPrefix = "AD-"
	confirmationLength = 5
	alphabet           = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) NewBookingID() string {
	return uuid.NewString()
}

func (g *Generator) NewEventID() string {
	return uuid.NewString()
}

// NewConfirmationCode returns AD- followed by five uppercase base-36 characters.
func (g *Generator) NewConfirmationCode() (string, error) {
	var sb strings.Builder

	sb.WriteString(ConfirmationPrefix)

	limit := big.NewInt(int64(len(alphabet)))

	for range confirmationLength {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("read random index: %w", err)
		}

		sb.WriteByte(alphabet[n.Int64()])
	}

	return sb.String(), nil
}
