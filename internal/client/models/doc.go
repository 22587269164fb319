// Package models defines the Hubbits data types shared by the client
// packages: the signed-in Identity with its roles, and the entity records
// managed by list synchronizers.
package models
