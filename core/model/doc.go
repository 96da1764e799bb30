// Package model defines the fault, status and student types shared by the
// scheduler, the fault store and the API.
package model
