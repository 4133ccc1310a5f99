package command

import (
	"strings"

	"github.com/goliatone/go-assembly/core"
)

const (
	TypeInstallModule    = "assembly.command.module.install"
	TypeEnsureIndexes    = "assembly.command.indexes.ensure"
	TypeDeclareItemScope = "assembly.command.item_scope.declare"
	TypeRegisterResource = "assembly.command.resource.register"
)

type InstallModuleMessage struct {
	Name string
}

func (InstallModuleMessage) Type() string { return TypeInstallModule }

func (m InstallModuleMessage) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return commandValidationError("name", "module name is required")
	}
	return nil
}

// EnsureIndexesMessage runs index creation inline, or enqueues it as a task
// when Deferred is set and a task enqueuer is available.
type EnsureIndexesMessage struct {
	IgnoreDuplicateKeys bool
	Deferred            bool
}

func (EnsureIndexesMessage) Type() string { return TypeEnsureIndexes }

type DeclareItemScopeMessage struct {
	Name   string
	Schema core.Schema
}

func (DeclareItemScopeMessage) Type() string { return TypeDeclareItemScope }

func (m DeclareItemScopeMessage) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return commandValidationError("name", "item scope name is required")
	}
	return nil
}

type RegisterResourceMessage struct {
	Name     string
	Resource *core.Resource
}

func (RegisterResourceMessage) Type() string { return TypeRegisterResource }

func (m RegisterResourceMessage) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return commandValidationError("name", "resource name is required")
	}
	if m.Resource == nil {
		return commandValidationError("resource", "resource definition is required")
	}
	return nil
}
