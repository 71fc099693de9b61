package entitlement

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/magabrotheeeer/threadforge/internal/models"
)

func marshalGrant(g models.PremiumGrant) ([]byte, error) {
	return json.Marshal(g)
}

// parseCount разбирает значение счётчика из MGET. Отсутствующий ключ даёт 0.
func parseCount(v any) (int64, error) {
	switch s := v.(type) {
	case nil:
		return 0, nil
	case string:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errBadCounter, s)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %T", errBadCounter, v)
	}
}
