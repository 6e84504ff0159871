package model

import (
	"bytes"
	"encoding/json"
)

// CanonicalJSON сериализует v так, что результат не зависит от порядка ключей:
// значение проходит marshal → unmarshal в map → marshal, а encoding/json сортирует ключи map.
// Числа сохраняются как json.Number, чтобы не терять точность.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
