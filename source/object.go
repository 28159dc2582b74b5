package source

import "fmt"

// Object identifies a Cloud Storage object.
type Object struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Name   string `json:"name" yaml:"name"`
}

// FullPath returns full path of storage object beginning with gs://.
func (o Object) FullPath() string {
	return fmt.Sprintf("gs://%s/%s", o.Bucket, o.Name)
}
