// Package ordernum issues human-readable order numbers: the UTC date as
// YYYYMMDD, seven random digits and a Luhn check digit.
package ordernum

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ShiraazMoollatjie/goluhn"
)

const Length = 16

type Generator struct {
	now  func() time.Time
	rand func(n int) int
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now, rand: rand.IntN}
}

func (g *Generator) Next() (string, error) {
	body := g.now().UTC().Format("20060102") + fmt.Sprintf("%07d", g.rand(10_000_000))
	_, number, err := goluhn.Calculate(body)
	if err != nil {
		return "", fmt.Errorf("can't calculate check digit for %s: %w", body, err)
	}
	return number, nil
}

func IsValid(number string) bool {
	return len(number) == Length && goluhn.Validate(number) == nil
}
