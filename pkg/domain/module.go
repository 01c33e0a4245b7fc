package domain

import (
	"fmt"
	"time"
)

// ModuleFile is the document describing every module of the rig.
type ModuleFile struct {
	FileName    string            `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	Title       string            `json:"title" yaml:"title" validate:"required"`
	Description string            `json:"description" yaml:"description"`
	Version     string            `json:"version" yaml:"version" validate:"required"`
	Endpoint    string            `json:"endpoint" yaml:"endpoint"`
	Content     map[string]Module `json:"content" yaml:"content" validate:"dive"`
}

// Module is an addressable subsystem with a described request/response API.
type Module struct {
	Info ModuleInfo `json:"info" yaml:"info"`
	API  API        `json:"api" yaml:"api"`
}

// ModuleInfo identifies a module.
type ModuleInfo struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Kind        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
}

// API is the request surface exposed by a module.
type API struct {
	Endpoint  string             `json:"endpoint" yaml:"endpoint"`
	Variables map[string]string  `json:"variables,omitempty" yaml:"variables,omitempty"`
	Services  map[string]Service `json:"services" yaml:"services" validate:"dive,dive,keys,oneof=get post put delete,endkeys"`
}

// Service maps a request verb to its schema.
type Service map[RequestType]RequestSchema

// RequestType is an HTTP-like verb.
type RequestType string

const (
	RequestGet    RequestType = "get"
	RequestPost   RequestType = "post"
	RequestPut    RequestType = "put"
	RequestDelete RequestType = "delete"
)

// RequestTypes lists the accepted verbs in a stable order.
var RequestTypes = []RequestType{RequestGet, RequestPost, RequestPut, RequestDelete}

// Valid reports whether t is one of the accepted verbs.
func (t RequestType) Valid() bool {
	for _, known := range RequestTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RequestSchema describes a single request of a service.
type RequestSchema struct {
	Summary    string        `json:"summary" yaml:"summary"`
	Timeout    string        `json:"timeout" yaml:"timeout" validate:"required"`
	Parameters []ValueSchema `json:"parameters,omitempty" yaml:"parameters,omitempty" validate:"dive"`
	Response   []ValueSchema `json:"response,omitempty" yaml:"response,omitempty" validate:"dive"`
}

// TimeoutDuration parses the free-text timeout ("500ms", "2s", "1m").
// A bare number is read as seconds.
func (r RequestSchema) TimeoutDuration() (time.Duration, error) {
	if d, err := time.ParseDuration(r.Timeout); err == nil {
		return d, nil
	}
	var secs float64
	if _, err := fmt.Sscanf(r.Timeout, "%g", &secs); err != nil {
		return 0, fmt.Errorf("invalid timeout %q", r.Timeout)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Unit is the physical unit of a value.
type Unit string

const (
	UnitCelsius      Unit = "C"
	UnitMilliseconds Unit = "ms"
	UnitSeconds      Unit = "s"
	UnitMinutes      Unit = "m"
)

// ValueSchema is a typed parameter or response field.
type ValueSchema struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Type        string `json:"type" yaml:"type" validate:"required"`
	Description string `json:"description" yaml:"description"`
	Unit        *Unit  `json:"unit,omitempty" yaml:"unit,omitempty" validate:"omitempty,oneof=C ms s m"`
}

// Value is a ValueSchema bound to a numeric value.
type Value struct {
	ValueSchema `yaml:",inline"`
	Value       float64 `json:"value" yaml:"value"`
}
