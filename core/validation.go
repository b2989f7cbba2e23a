// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



package core

import (
	"fmt"
	"strings"
)

// ValidateItem validates an Item according to domain rules.
//
// Validation rules:
//   - SourceID and ItemID must not be empty or contain NUL bytes
//   - Kind must be valid (primary or secondary)
//   - HasLinks must equal len(Links) > 0
//
// NOT validated:
//   - Text (primary items may legitimately be empty)
//   - Processed/NormalizedText (owned by the normalizer)
func ValidateItem(item *Item) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidItem)
	}

	if err := validateIdentifier(item.SourceID, ErrEmptySourceID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}

	if err := validateIdentifier(item.ItemID, ErrEmptyItemID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}

	if err := ValidateSourceKind(item.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}

	if item.HasLinks != (len(item.Links) > 0) {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrLinkFlagMismatch)
	}

	return nil
}

// ValidateSourceKind validates that a SourceKind has a valid value.
func ValidateSourceKind(kind SourceKind) error {
	if kind != SourceKindPrimary && kind != SourceKindSecondary {
		return fmt.Errorf("%w: value %d", ErrInvalidSourceKind, kind)
	}
	return nil
}

// ValidateSource validates a registry Source.
func ValidateSource(source *Source) error {
	if source == nil {
		return fmt.Errorf("%w: source is nil", ErrInvalidSource)
	}
	if err := validateIdentifier(source.Name, ErrEmptySourceID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	return nil
}

// NormalizeSourceName trims whitespace and a leading @ from a channel name.
func NormalizeSourceName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "@")
}

func validateIdentifier(value string, emptyErr error) error {
	if value == "" {
		return emptyErr
	}
	if strings.IndexByte(value, 0) >= 0 {
		return ErrInvalidKeyByte
	}
	return nil
}
