package utils

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	SilenceLogger()

	encoded, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword("correct horse", encoded) {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword("battery staple", encoded) {
		t.Fatal("wrong password accepted")
	}
	if VerifyPassword("correct horse", "not-a-hash") {
		t.Fatal("malformed hash accepted")
	}

	again, _ := HashPassword("correct horse")
	if again == encoded {
		t.Fatal("two hashes of the same password share a salt")
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatal("blank password hashed")
	}
}
