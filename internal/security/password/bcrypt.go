package password

import "golang.org/x/crypto/bcrypt"

// Cost es el factor de trabajo de bcrypt para hashes nuevos.
const Cost = 10

// MinLength es el largo mínimo aceptado para el password en el registro.
const MinLength = 6

// Hash deriva un hash one-way a partir del password en claro.
func Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compara el password en claro contra el hash guardado. Un hash
// nil o vacío nunca matchea.
func Verify(plain string, hash *string) bool {
	if hash == nil || *hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(plain)) == nil
}
