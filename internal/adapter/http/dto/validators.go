package dto

import (
	"reflect"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("solana_address", validateSolanaAddress)
		_ = v.RegisterValidation("solana_signature", validateSolanaSignature)
	}
}

// IsSolanaAddress reports whether s is a base58 encoded 32-byte public key.
func IsSolanaAddress(s string) bool {
	_, err := solana.PublicKeyFromBase58(s)
	return err == nil
}

// IsSolanaSignature reports whether s is a base58 encoded 64-byte signature.
func IsSolanaSignature(s string) bool {
	_, err := solana.SignatureFromBase58(s)
	return err == nil
}

func validateSolanaAddress(fl validator.FieldLevel) bool {
	return IsSolanaAddress(fl.Field().String())
}

func validateSolanaSignature(fl validator.FieldLevel) bool {
	return IsSolanaSignature(fl.Field().String())
}

// TrimStruct trims surrounding whitespace from every exported string field
// (including *string) of a struct pointer. Fields tagged trim:"-" are left
// as they are.
func TrimStruct(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	rv = rv.Elem()
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() || rt.Field(i).Tag.Get("trim") == "-" {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Ptr:
			if !f.IsNil() && f.Elem().Kind() == reflect.String {
				f.Elem().SetString(strings.TrimSpace(f.Elem().String()))
			}
		}
	}
}
