// Package vector содержит представление эмбеддингов, их кодек для хранилищ
// без нативного векторного типа и движок косинусного сходства.
package vector

import (
	"errors"
	"fmt"
)

// Vector — эмбеддинг фиксированной размерности. nil означает «эмбеддинга нет».
type Vector []float32

// Dim возвращает размерность вектора.
func (v Vector) Dim() int {
	return len(v)
}

// Valid сообщает, содержит ли вектор хотя бы одно значение.
func (v Vector) Valid() bool {
	return len(v) > 0
}

// ErrZeroMagnitude — сходство с нулевым вектором не определено.
var ErrZeroMagnitude = errors.New("vector has zero magnitude")

// MalformedVectorError возвращается, когда текстовое представление не разбирается как массив чисел.
type MalformedVectorError struct {
	Input string
	Err   error
}

func (m *MalformedVectorError) Error() string {
	const maxInput = 64

	input := m.Input
	if len(input) > maxInput {
		input = input[:maxInput] + "..."
	}

	return fmt.Sprintf("malformed vector %q: %v", input, m.Err)
}

func (m *MalformedVectorError) Unwrap() error {
	return m.Err
}

// DimensionMismatchError возвращается при сравнении несовместимых векторов:
// разной длины либо когда хотя бы один из них нулевой.
type DimensionMismatchError struct {
	Left          int
	Right         int
	ZeroMagnitude bool
}

func (d *DimensionMismatchError) Error() string {
	if d.ZeroMagnitude {
		return fmt.Sprintf("undefined similarity for dimensions %d and %d: %v", d.Left, d.Right, ErrZeroMagnitude)
	}

	return fmt.Sprintf("dimension mismatch: %d != %d", d.Left, d.Right)
}

func (d *DimensionMismatchError) Unwrap() error {
	if d.ZeroMagnitude {
		return ErrZeroMagnitude
	}

	return nil
}

// IsMalformed сообщает, что ошибка вызвана повреждённым представлением вектора.
func IsMalformed(err error) bool {
	var m *MalformedVectorError
	return errors.As(err, &m)
}

// IsDimensionMismatch сообщает, что векторы несовместимы.
func IsDimensionMismatch(err error) bool {
	var d *DimensionMismatchError
	return errors.As(err, &d)
}
