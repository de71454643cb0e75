// Package seqcask provides a client for a seqcask sequence retrieval server
// over TCP.
//
// Example:
//
//	client, err := seqcask.Connect(seqcask.WithPort(6969))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	record, err := client.Get("k25", seqcask.Protein, "ABCD_78577")
//	if errors.Is(err, seqcask.ErrNotFound) {
//	    ...
//	}
package seqcask
