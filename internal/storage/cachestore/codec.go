package cachestore

import (
	"encoding/json"

	"github.com/magabrotheeeer/threadforge/internal/models"
)

func marshal(u models.User) ([]byte, error) {
	return json.Marshal(u)
}

func unmarshal(raw []byte) (models.User, error) {
	var u models.User
	err := json.Unmarshal(raw, &u)
	return u, err
}
