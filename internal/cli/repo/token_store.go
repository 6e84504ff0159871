package repo

// TokenStore хранит на клиенте API-токен и адрес, для которого он выпущен.
type TokenStore interface {
	Save(token string) error
	Load() (string, error)
	SaveAddress(addr string) error
	LoadAddress() (string, error)
}
