package types

import (
	"github.com/google/uuid"
)

type UniqueID uuid.UUID

func NewUniqueID() UniqueID {
	return UniqueID(uuid.New())
}

func (id UniqueID) String() string {
	return uuid.UUID(id).String()
}

func (id UniqueID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *UniqueID) UnmarshalText(text []byte) error {
	parsed, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = UniqueID(parsed)
	return nil
}

func MustParse(s string) UniqueID {
	return UniqueID(uuid.MustParse(s))
}

func Parse(s string) (UniqueID, error) {
	id, err := uuid.Parse(s)
	return UniqueID(id), err
}

func NilUniqueID() UniqueID {
	return UniqueID(uuid.Nil)
}

func ToUniqueID(idString *string) (UniqueID, error) {
	if idString != nil {
		id, err := Parse(*idString)
		if err != nil {
			return NilUniqueID(), err
		}
		return id, nil
	}
	return NilUniqueID(), nil
}

func FromUniqueID(id UniqueID) *string {
	var idStringPointer *string
	if id != NilUniqueID() {
		idString := id.String()
		idStringPointer = &idString
	}
	return idStringPointer
}
