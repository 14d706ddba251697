package rrsif

import (
	"crypto/sha256"
	"encoding/hex"
)

// Huella calcula la huella SHA-256 en hexadecimal minúscula de
// payload ‖ huellaAnterior. Para el primer registro de una cadena la huella
// anterior es la cadena vacía y no aporta bytes.
func Huella(payload []byte, huellaAnterior string) string {
	h := sha256.New()
	h.Write(payload)
	if huellaAnterior != "" {
		h.Write([]byte(huellaAnterior))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HuellaDeCampos canonicaliza los campos y encadena con la huella anterior.
func HuellaDeCampos(campos map[string]any, huellaAnterior string) (string, error) {
	payload, err := Canonicalizar(campos)
	if err != nil {
		return "", err
	}
	return Huella(payload, huellaAnterior), nil
}

// Eslabon es la unidad mínima verificable de una cadena: el payload lógico
// del registro más su huella y la huella del registro anterior. Es todo lo
// que un export debe transportar para que un tercero verifique la cadena.
type Eslabon struct {
	Payload        map[string]any
	Huella         string
	HuellaAnterior string
}

// VerificarCadena recomputa las huellas de la secuencia completa en orden de
// append y devuelve (true, -1) si es autoconsistente. Ante la primera
// divergencia devuelve (false, i) con el índice del registro roto.
//
// No necesita asignador, firmador ni almacén vivo: es invocable offline
// contra un export.
func VerificarCadena(eslabones []Eslabon) (ok bool, indiceRoto int, err error) {
	anterior := ""
	for i, e := range eslabones {
		if e.HuellaAnterior != anterior {
			return false, i, nil
		}
		payload, errC := Canonicalizar(e.Payload)
		if errC != nil {
			return false, i, errC
		}
		if Huella(payload, e.HuellaAnterior) != e.Huella {
			return false, i, nil
		}
		anterior = e.Huella
	}
	return true, -1, nil
}
