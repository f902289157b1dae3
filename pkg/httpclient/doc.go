// Package httpclient uploads files to the upload server with the resumable
// protocol, then waits for the processing outcome.
//
// Create a client with:
//
//	client, err := httpclient.New("http://localhost:8080")
//	if err != nil {
//	   panic(err)
//	}
//
// Then upload one or more files:
//
//	results, err := client.UploadFiles(ctx, "a.csv", "b.csv")
//
// An interrupted upload resumes from the server offset when the same file is
// uploaded again through a client sharing the same ResumeStore.
package httpclient
