package dbdriver

import (
	"fmt"
	"reflect"
)

// assign copies src, a value produced by a driver.Rows.Next call, into dst,
// a pointer supplied by the caller of Rows.Scan/Row.Scan. It supports the
// common direct-assignable cases and falls back to a reflect-based
// conversion for numeric widening, matching the spirit (not the full
// surface) of database/sql's internal convertAssignRows.
func assign(dst, src any) error {
	if scanner, ok := dst.(interface{ Scan(any) error }); ok {
		return scanner.Scan(src)
	}

	dpv := reflect.ValueOf(dst)
	if dpv.Kind() != reflect.Ptr {
		return ErrNotAPointer
	}
	if dpv.IsNil() {
		return ErrNilPointer
	}
	dv := reflect.Indirect(dpv)

	if src == nil {
		dv.Set(reflect.Zero(dv.Type()))
		return nil
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dv.Type()) {
		dv.Set(sv)
		return nil
	}
	if sv.Type().ConvertibleTo(dv.Type()) {
		dv.Set(sv.Convert(dv.Type()))
		return nil
	}

	return fmt.Errorf("%w: cannot assign %T to %T", ErrRowsUnexpectedScan, src, dst)
}
