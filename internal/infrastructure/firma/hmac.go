// Package firma implementa el firmador de registros RRSIF: HMAC-SHA256 con
// clave local sobre (huella, timestamp, id del sistema). La gestión de la
// clave es responsabilidad del colaborador externo; aquí solo se consume.
package firma

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/academiagest/registro-rrsif/internal/domain"
)

// FirmadorHMAC firma y verifica registros con una clave simétrica local.
// Sin estado por llamada: seguro para uso concurrente.
type FirmadorHMAC struct {
	clave []byte
}

// NewFirmadorHMAC construye el firmador desde la clave en hexadecimal.
// Sin clave no hay emisión posible: domain.ErrFirma.
func NewFirmadorHMAC(claveHex string) (*FirmadorHMAC, error) {
	if claveHex == "" {
		return nil, domain.ErrFirma
	}
	clave, err := hex.DecodeString(claveHex)
	if err != nil {
		return nil, fmt.Errorf("%w: clave no es hexadecimal", domain.ErrFirma)
	}
	return &FirmadorHMAC{clave: clave}, nil
}

// Firmar produce la firma hex de (huella, timestamp, idSistema), atando el
// registro a esta instalación concreta.
func (f *FirmadorHMAC) Firmar(huella string, ts time.Time, idSistema string) (string, error) {
	if len(f.clave) == 0 {
		return "", domain.ErrFirma
	}
	mac := hmac.New(sha256.New, f.clave)
	mac.Write(mensaje(huella, ts, idSistema))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verificar comprueba la firma en tiempo constante.
func (f *FirmadorHMAC) Verificar(firmaHex, huella string, ts time.Time, idSistema string) bool {
	esperada, err := f.Firmar(huella, ts, idSistema)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(esperada), []byte(firmaHex))
}

// mensaje serializa los tres componentes firmados con separador fijo.
func mensaje(huella string, ts time.Time, idSistema string) []byte {
	return []byte(huella + "|" + ts.UTC().Format(time.RFC3339) + "|" + idSistema)
}
