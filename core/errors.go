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

import "errors"

// Domain validation errors
var (
	// ErrInvalidItem indicates an Item failed validation.
	ErrInvalidItem = errors.New("invalid item")

	// ErrInvalidSource indicates a Source failed validation.
	ErrInvalidSource = errors.New("invalid source")

	// ErrEmptySourceID indicates the SourceID field is empty.
	ErrEmptySourceID = errors.New("source id cannot be empty")

	// ErrEmptyItemID indicates the ItemID field is empty.
	ErrEmptyItemID = errors.New("item id cannot be empty")

	// ErrInvalidKeyByte indicates an identifier contains a NUL byte, which is reserved as the key separator.
	ErrInvalidKeyByte = errors.New("identifier cannot contain NUL bytes")

	// ErrInvalidSourceKind indicates an invalid SourceKind value.
	ErrInvalidSourceKind = errors.New("invalid source kind")

	// ErrLinkFlagMismatch indicates HasLinks disagrees with the Links slice.
	ErrLinkFlagMismatch = errors.New("has-links flag does not match links")

	// ErrEmptyContent indicates the Text field is empty where content is required.
	ErrEmptyContent = errors.New("content cannot be empty")
)
