// Package rules defines the rule contract and the registry that owns every
// known rule. Rules are stateless values; everything a check needs for one
// file is carried by Context. Built-in rules live in rules/builtin, project
// specific ones in rules/custom; both are installed through Registry.Register.
package rules
